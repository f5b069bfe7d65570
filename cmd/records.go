package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// RecordsList prints one page of the filtered record set.
func (r *Runner) RecordsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(cmd.String("config")); err != nil {
		return err
	}

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	records, err := r.repo.List(ctx, filter, cmd.Int("limit"), cmd.Int("offset"))
	if err != nil {
		return err
	}

	if len(records) == 0 {
		r.writePlain("no records\n")
		return nil
	}

	for _, record := range records {
		r.writePlain("%8d  %s  %s %s %s  %s, %s\n",
			record.ID, record.DateString(),
			record.FirstName, record.LastName, record.SurName,
			record.City, record.Country)
	}
	return nil
}

// RecordsCount prints the number of records matching the filter.
func (r *Runner) RecordsCount(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(cmd.String("config")); err != nil {
		return err
	}

	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}

	count, err := r.repo.Count(ctx, filter)
	if err != nil {
		return err
	}

	r.writePlain("%d\n", count)
	return nil
}

// RecordsClear deletes every stored record after confirmation.
func (r *Runner) RecordsClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(cmd.String("config")); err != nil {
		return err
	}

	if !cmd.Bool("yes") {
		return fmt.Errorf("refusing to delete all records without --yes")
	}

	deleted, err := r.repo.DeleteAll(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("records cleared", "deleted", deleted)
	r.writePlain("deleted %d records\n", deleted)
	return nil
}
