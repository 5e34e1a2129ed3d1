package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"rtt-collect/internal/geo"
	"rtt-collect/internal/logging"
)

var geoCmd = &cobra.Command{
	Use:   "geo [IP...]",
	Short: "Geolocate addresses, or the caller when none are given",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logging.FromContext(ctx)
		g := newGeolocator(cfg)
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)

		self, err := g.MyLocation(ctx)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return enc.Encode(self)
		}
		for _, ip := range args {
			loc, err := g.Locate(ctx, ip)
			if errors.Is(err, geo.ErrLookupFailed) {
				log.Warn("lookup failed", "ip", ip, "error", err)
				continue
			}
			if err != nil {
				return err
			}
			out := struct {
				IP         string  `json:"ip"`
				Lat        float64 `json:"lat"`
				Lon        float64 `json:"lon"`
				City       string  `json:"city,omitempty"`
				Country    string  `json:"country,omitempty"`
				DistanceKM float64 `json:"distance_km"`
			}{ip, loc.Lat, loc.Lon, loc.City, loc.Country, geo.Haversine(loc.Lat, loc.Lon, self.Lat, self.Lon)}
			if err := enc.Encode(out); err != nil {
				return err
			}
		}
		return nil
	},
}
