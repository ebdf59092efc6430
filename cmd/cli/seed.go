package cli

import (
	"fmt"
	"time"

	"vehicle-service-scheduling/cmd/bootstrap"
	"vehicle-service-scheduling/internal/domain/entity"
	"vehicle-service-scheduling/internal/infrastructure/database"

	"github.com/spf13/cobra"
)

func newSeedSlotsCmd() *cobra.Command {
	var (
		from, to             string
		open, closing        string
		breakStart, breakEnd string
		slotMinutes          int
		capacity             int
		weekends             bool
	)

	cmd := &cobra.Command{
		Use:   "seed-slots",
		Short: "Create time slots for a date range ahead of time",
		Example: `  scheduler seed-slots --from 2025-12-01 --to 2025-12-05 --open 08:00 --close 17:00 \
    --break-start 12:00 --break-end 13:00 --slot-minutes 60 --capacity 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := database.NewPostgresConnection(cfg.DB)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			ledger, err := bootstrap.NewSlotLedger(cfg, db, log)
			if err != nil {
				return err
			}
			loc := ledger.Location()

			start, err := time.ParseInLocation("2006-01-02", from, loc)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			end, err := time.ParseInLocation("2006-01-02", to, loc)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
			if end.Before(start) {
				return fmt.Errorf("--to must not be before --from")
			}

			template := entity.BusinessHours{
				OpenTime:     open,
				CloseTime:    closing,
				BreakStart:   breakStart,
				BreakEnd:     breakEnd,
				SlotMinutes:  slotMinutes,
				SlotCapacity: capacity,
				Active:       true,
			}

			var slots []entity.TimeSlot
			for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
				if !weekends && (day.Weekday() == time.Saturday || day.Weekday() == time.Sunday) {
					continue
				}
				daySlots, err := template.SlotsFor(day, loc)
				if err != nil {
					return fmt.Errorf("invalid slot template: %w", err)
				}
				slots = append(slots, daySlots...)
			}

			created, err := ledger.BulkCreate(cmd.Context(), slots)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %d of %d slots\n", created, len(slots))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day to seed (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day to seed, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVar(&open, "open", "08:00", "opening time (HH:MM)")
	cmd.Flags().StringVar(&closing, "close", "17:00", "closing time (HH:MM)")
	cmd.Flags().StringVar(&breakStart, "break-start", "", "start of the daily break (HH:MM)")
	cmd.Flags().StringVar(&breakEnd, "break-end", "", "end of the daily break (HH:MM)")
	cmd.Flags().IntVar(&slotMinutes, "slot-minutes", 60, "length of each slot in minutes")
	cmd.Flags().IntVar(&capacity, "capacity", 1, "appointments per slot")
	cmd.Flags().BoolVar(&weekends, "weekends", false, "also seed Saturdays and Sundays")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
