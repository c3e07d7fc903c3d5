package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"bookingwidget/internal/models"
	"bookingwidget/internal/widget"

	"github.com/spf13/cobra"
)

func newBookCmd(a *app) *cobra.Command {
	var (
		fullName string
		phone    string
		email    string
		service  string
		date     string
		slot     string
	)

	c := &cobra.Command{
		Use:   "book",
		Short: "Validate and submit a booking the way the widget form does",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			catalog, err := a.client.Services(ctx)
			if err != nil {
				a.logger.Debug().Err(err).Msg("services endpoint unavailable, using built-in catalog")
				catalog = models.DefaultCatalog()
			}

			notifier := widget.NewNotifier(func(n *widget.Notification) {
				if n == nil {
					return
				}
				fmt.Fprintf(out(cmd), "[%s] %s\n", n.Kind, n.Message)
			})
			form := widget.NewForm(a.client, catalog, notifier, &a.logger)

			fields := []struct{ name, value string }{
				{widget.FieldFullName, fullName},
				{widget.FieldContactNumber, phone},
				{widget.FieldEmail, email},
				{widget.FieldService, service},
				{widget.FieldDate, date},
			}
			for _, f := range fields {
				if err := form.SetField(ctx, f.name, f.value); err != nil {
					return err
				}
			}

			if slot != "" && date != "" && !contains(form.AvailableSlots(), slot) {
				return fmt.Errorf("time %s is not available on %s; free: %s", slot, date, strings.Join(form.AvailableSlots(), " "))
			}
			if err := form.SetField(ctx, widget.FieldTime, slot); err != nil {
				return err
			}

			created, err := form.Submit(ctx)
			if errors.Is(err, widget.ErrFormInvalid) {
				printFieldErrors(cmd, form.Errors())
				return err
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out(cmd), "booking id=%d %s %s %q\n", created.ID, created.Date, created.Time, created.Service)
			return nil
		},
	}

	c.Flags().StringVar(&fullName, "name", "", "full name")
	c.Flags().StringVar(&phone, "phone", "", "contact number")
	c.Flags().StringVar(&email, "email", "", "email address")
	c.Flags().StringVar(&service, "service", "", "service from the catalog")
	c.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD")
	c.Flags().StringVar(&slot, "time", "", "time slot HH:MM")
	return c
}

func newSlotsCmd(a *app) *cobra.Command {
	var showBooked bool

	c := &cobra.Command{
		Use:   "slots DATE",
		Short: "Show the free time slots of a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if showBooked {
				booked, err := a.client.BookedSlots(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out(cmd), strings.Join(booked, "\n"))
				return nil
			}

			catalog, err := a.client.Services(ctx)
			if err != nil {
				catalog = models.DefaultCatalog()
			}
			form := widget.NewForm(a.client, catalog, nil, &a.logger)
			if err := form.SetField(ctx, widget.FieldDate, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), strings.Join(form.AvailableSlots(), "\n"))
			return nil
		},
	}

	c.Flags().BoolVar(&showBooked, "booked", false, "list booked times instead of free ones")
	return c
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check DATE TIME",
		Short: "Check whether one slot is free",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			available, err := a.client.CheckAvailability(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if available {
				fmt.Fprintf(out(cmd), "%s %s is available\n", args[0], args[1])
			} else {
				fmt.Fprintf(out(cmd), "%s %s is booked\n", args[0], args[1])
			}
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var date string

	c := &cobra.Command{
		Use:   "list",
		Short: "List bookings ordered by date and time",
		RunE: func(cmd *cobra.Command, _ []string) error {
			bookings, err := a.client.ListBookings(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tTIME\tSERVICE\tNAME\tPHONE\tEMAIL")
			for _, b := range bookings {
				if date != "" && b.Date != date {
					continue
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", b.ID, b.Date, b.Time, b.Service, b.FullName, b.ContactNumber, b.Email)
			}
			return tw.Flush()
		},
	}

	c.Flags().StringVar(&date, "date", "", "only bookings of this date")
	return c
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a booking by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid booking id %q", args[0])
			}
			if err := a.client.DeleteBooking(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "booking %d deleted\n", id)
			return nil
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	var path string

	c := &cobra.Command{
		Use:   "export",
		Short: "Download all bookings as an xlsx workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create %s: %w", path, err)
			}
			if err := a.client.Export(cmd.Context(), f); err != nil {
				_ = f.Close()
				_ = os.Remove(path)
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "exported to %s\n", path)
			return nil
		},
	}

	c.Flags().StringVarP(&path, "out", "o", "bookings.xlsx", "output file")
	return c
}

func printFieldErrors(cmd *cobra.Command, errs map[string]string) {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", f, errs[f])
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
