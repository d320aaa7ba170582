package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"asaancar/internal/api"
)

func init() {
	favoriteCmd.AddCommand(favoriteAddCmd)
	favoriteCmd.AddCommand(favoriteRemoveCmd)
	favoriteCmd.AddCommand(favoriteListCmd)
	rootCmd.AddCommand(favoriteCmd)
}

var favoriteCmd = &cobra.Command{
	Use:     "favorite",
	Aliases: []string{"fav"},
	Short:   "Manage locally saved favorite cars",
}

var favoriteAddCmd = &cobra.Command{
	Use:   "add <car-id>",
	Short: "Save a car as a favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		store, err := a.localStore()
		if err != nil {
			return err
		}
		defer store.Close()

		carID := api.ID(args[0])
		name := ""
		if car, carErr := a.client.GetCar(cmd.Context(), carID); carErr == nil {
			name = car.Name
		}
		if err := store.AddFavorite(cmd.Context(), carID, name); err != nil {
			return err
		}
		fmt.Println("Saved.")
		return nil
	},
}

var favoriteRemoveCmd = &cobra.Command{
	Use:   "remove <car-id>",
	Short: "Remove a favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		store, err := a.localStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.RemoveFavorite(cmd.Context(), api.ID(args[0])); err != nil {
			return err
		}
		fmt.Println("Removed.")
		return nil
	},
}

var favoriteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		store, err := a.localStore()
		if err != nil {
			return err
		}
		defer store.Close()
		favorites, err := store.Favorites(cmd.Context())
		if err != nil {
			return err
		}
		if len(favorites) == 0 {
			fmt.Println("No favorites saved.")
			return nil
		}
		for _, fav := range favorites {
			if fav.Name != "" {
				fmt.Printf("%-6s %s\n", fav.CarID, fav.Name)
			} else {
				fmt.Println(fav.CarID)
			}
		}
		return nil
	},
}
