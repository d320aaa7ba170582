package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"asaancar/internal/api"
)

var carFilters struct {
	brand        string
	carType      string
	transmission string
	fuel         string
	seats        int
	maxPrice     int64
}

func init() {
	carsCmd.Flags().StringVar(&carFilters.brand, "brand", "", "filter by brand")
	carsCmd.Flags().StringVar(&carFilters.carType, "type", "", "filter by car type")
	carsCmd.Flags().StringVar(&carFilters.transmission, "transmission", "", "filter by transmission")
	carsCmd.Flags().StringVar(&carFilters.fuel, "fuel", "", "filter by fuel type")
	carsCmd.Flags().IntVar(&carFilters.seats, "seats", 0, "minimum seats")
	carsCmd.Flags().Int64Var(&carFilters.maxPrice, "max-price", 0, "maximum price per day")
	carsCmd.AddCommand(carsSearchCmd)
	carsCmd.AddCommand(carsShowCmd)
	rootCmd.AddCommand(carsCmd)
}

var carsCmd = &cobra.Command{
	Use:   "cars",
	Short: "Browse the car catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		cars, err := a.client.ListCars(cmd.Context(), api.CarFilters{
			Brand:          carFilters.brand,
			Type:           carFilters.carType,
			Transmission:   carFilters.transmission,
			FuelType:       carFilters.fuel,
			MinSeats:       carFilters.seats,
			MaxPricePerDay: carFilters.maxPrice,
		})
		if err != nil {
			return err
		}
		printCars(cars)
		return nil
	},
}

var carsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Free-text search over the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		cars, err := a.client.SearchCars(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if store, storeErr := a.localStore(); storeErr == nil {
			defer store.Close()
			if recErr := store.RecordSearch(cmd.Context(), args[0]); recErr != nil {
				a.logger.Debug("search history write failed", "error", recErr)
			}
		}
		printCars(cars)
		return nil
	},
}

var carsShowCmd = &cobra.Command{
	Use:   "show <car-id>",
	Short: "Show one car",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		car, err := a.client.GetCar(cmd.Context(), api.ID(args[0]))
		if err != nil {
			return err
		}
		fmt.Printf("%s  (%s %s)\n", car.Name, car.Brand, car.Type)
		fmt.Printf("  Seats: %d  Transmission: %s  Fuel: %s\n", car.Seats, car.Transmission, car.FuelType)
		fmt.Printf("  %s/hour, %s/day\n", formatPrice(car.PricePerHour), formatPrice(car.PricePerDay))
		if !car.Available {
			fmt.Println("  Currently unavailable")
		}
		if car.StoreName != "" {
			fmt.Printf("  Store: %s (id %d)\n", car.StoreName, car.StoreID)
		}
		return nil
	},
}

func printCars(cars []api.Car) {
	if len(cars) == 0 {
		fmt.Println("No cars found.")
		return
	}
	for _, car := range cars {
		marker := " "
		if !car.Available {
			marker = "✗"
		}
		fmt.Printf("%s %-6s %-24s %-12s %2d seats  %s/day\n",
			marker, car.ID, car.Name, car.Transmission, car.Seats, formatPrice(car.PricePerDay))
	}
}
