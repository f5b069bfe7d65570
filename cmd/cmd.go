// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes configuration and the database schema
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// importCommand ingests a delimited source file into the store
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Aliases:   []string{"i"},
		Usage:     "Import a `;`-delimited file into the record store",
		ArgsUsage: "<file>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "file"},
		},
		Flags:  []cli.Flag{configFlag()},
		Action: r.Import,
	}
}

// exportCommand streams filtered records to an artifact file
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Aliases:   []string{"e"},
		Usage:     "Export filtered records to an XLSX workbook or XML document",
		ArgsUsage: "<destination>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "destination"},
		},
		Flags: append(filterFlags(),
			configFlag(),
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format: xlsx or xml",
				Value:   "xlsx",
			},
		),
		Action: r.Export,
	}
}

// recordsCommand inspects and maintains the stored records
func recordsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "records",
		Aliases: []string{"rec"},
		Usage:   "Inspect stored records",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored records, one page at a time",
				Flags: append(filterFlags(),
					configFlag(),
					&cli.IntFlag{Name: "limit", Usage: "Rows per page", Value: 20},
					&cli.IntFlag{Name: "offset", Usage: "Rows to skip", Value: 0},
				),
				Action: r.RecordsList,
			},
			{
				Name:   "count",
				Usage:  "Count records matching the filter",
				Flags:  append(filterFlags(), configFlag()),
				Action: r.RecordsCount,
			},
			{
				Name:  "clear",
				Usage: "Delete every stored record",
				Flags: []cli.Flag{
					configFlag(),
					&cli.BoolFlag{Name: "yes", Usage: "Skip the confirmation prompt"},
				},
				Action: r.RecordsClear,
			},
		},
	}
}

// tuiCommand runs a pipeline with a live terminal progress view
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Run import or export with an interactive progress view",
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Import with a progress bar",
				ArgsUsage: "<file>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "file"},
				},
				Flags:  []cli.Flag{configFlag()},
				Action: r.TUIImport,
			},
			{
				Name:      "export",
				Usage:     "Export with a progress bar",
				ArgsUsage: "<destination>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "destination"},
				},
				Flags: append(filterFlags(),
					configFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: xlsx or xml",
						Value:   "xlsx",
					},
				),
				Action: r.TUIExport,
			},
		},
	}
}

// filterFlags are shared by every command that takes a record predicate.
func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "Earliest record date (yyyy-MM-dd)"},
		&cli.StringFlag{Name: "to", Usage: "Latest record date (yyyy-MM-dd)"},
		&cli.StringFlag{Name: "name", Usage: "Substring match on name attributes"},
		&cli.StringFlag{Name: "city", Usage: "Exact city match"},
		&cli.StringFlag{Name: "country", Usage: "Exact country match"},
	}
}
