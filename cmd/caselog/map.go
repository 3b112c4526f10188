package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Geocode case locations and inspect the resulting markers",
}

var mapLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Run one map load cycle and print the placed markers",
	Long:  `Geocode every distinct city/state in the case log (cache first, Nominatim on misses) and print the resulting markers with their popup summaries.`,
	RunE:  runMapLoad,
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the persistent geocoding cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all cached geocoding results",
	RunE:  runCachePurge,
}

func init() {
	mapCmd.AddCommand(mapLoadCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
}

func runMapLoad(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	coord, surface, life := a.newCoordinator(func(text string) {
		fmt.Println(text)
	})
	defer life.Shutdown()

	if err := coord.StartLoad(cmd.Context()); err != nil {
		return err
	}
	<-coord.Done()

	markers := surface.Markers()
	if len(markers) == 0 {
		return nil
	}

	fmt.Println()
	for _, m := range markers {
		fmt.Printf("%s, %s (%.4f, %.4f)\n", m.City, m.State, m.Lat, m.Lon)
	}
	view := surface.Viewport()
	fmt.Printf("\nViewport: %.4f, %.4f (zoom %d)\n", view.Lat, view.Lon, view.Zoom)
	return nil
}

func runCachePurge(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.PurgeLocations(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("Geocoding cache purged.")
	return nil
}
