package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"asaancar/internal/api"
)

var bookFlags struct {
	pickup    string
	dropoff   string
}

func init() {
	bookCmd.Flags().StringVar(&bookFlags.pickup, "pickup", "", "pickup location")
	bookCmd.Flags().StringVar(&bookFlags.dropoff, "return", "", "return location (defaults to pickup)")
	rootCmd.AddCommand(bookCmd)
	rootCmd.AddCommand(bookingsCmd)
	rootCmd.AddCommand(cancelCmd)
}

var bookCmd = &cobra.Command{
	Use:   "book <car-id> <start-date> <end-date>",
	Short: "Book a car (dates as YYYY-MM-DD)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadAuthedApp()
		if err != nil {
			return err
		}
		dropoff := bookFlags.dropoff
		if dropoff == "" {
			dropoff = bookFlags.pickup
		}
		booking, err := a.client.CreateBooking(cmd.Context(), api.BookingRequest{
			CarID:          api.ID(args[0]),
			StartDate:      args[1],
			EndDate:        args[2],
			PickupLocation: bookFlags.pickup,
			ReturnLocation: dropoff,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Booked %s from %s to %s (booking %s, %s)\n",
			booking.Car.Name, booking.StartDate, booking.EndDate, booking.ID, booking.Status)
		return nil
	},
}

var bookingsCmd = &cobra.Command{
	Use:   "bookings",
	Short: "List your bookings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadAuthedApp()
		if err != nil {
			return err
		}
		store, storeErr := a.localStore()
		if storeErr == nil {
			defer store.Close()
		}

		bookings, err := a.client.MyBookings(cmd.Context())
		if err != nil {
			// Fallback display only; the failure is still reported so the
			// user can tell cached data from fresh.
			if store == nil {
				return err
			}
			cached, fetchedAt, cacheErr := store.CachedBookings(cmd.Context())
			if cacheErr != nil || len(cached) == 0 {
				return err
			}
			fmt.Printf("Could not reach the server (%v); showing bookings cached at %s:\n",
				err, fetchedAt.Format("2006-01-02 15:04"))
			printBookings(cached)
			return nil
		}
		if store != nil {
			if saveErr := store.SaveBookings(cmd.Context(), bookings); saveErr != nil {
				a.logger.Debug("booking cache write failed", "error", saveErr)
			}
		}
		printBookings(bookings)
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <booking-id>",
	Short: "Cancel a booking",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadAuthedApp()
		if err != nil {
			return err
		}
		booking, err := a.client.CancelBooking(cmd.Context(), api.ID(args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("Booking %s is now %s\n", booking.ID, booking.Status)
		return nil
	},
}

func printBookings(bookings []api.Booking) {
	if len(bookings) == 0 {
		fmt.Println("No bookings.")
		return
	}
	for _, b := range bookings {
		fmt.Printf("%-6s %-24s %s → %s  %-10s %s\n",
			b.ID, b.Car.Name, b.StartDate, b.EndDate, b.Status, formatPrice(b.TotalAmount))
	}
}
