// Command strategies prints the built-in scan strategy catalog, either as a
// table or as JSON carrying the published field names.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/signalsfoundry/cleanup-simulator/strategy"
)

func main() {
	asJSON := flag.Bool("json", false, "emit the catalog as JSON")
	name := flag.String("name", "", "print a single strategy by name")
	flag.Parse()

	catalog := strategy.Builtin()

	if *name != "" {
		strat, err := catalog.Lookup(*name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			fmt.Fprintf(os.Stderr, "known strategies: %s\n", strings.Join(catalog.Names(), ", "))
			os.Exit(1)
		}
		if *asJSON {
			printJSON(strat)
			return
		}
		fmt.Printf("%s\n", strat.Name)
		fmt.Printf("  Area (km²):                            %g\n", strat.AreaKm2)
		fmt.Printf("  Kw (%%):                                %g\n", strat.KwPct)
		fmt.Printf("  Kp (%%):                                %g\n", strat.KpPct)
		fmt.Printf("  H (km):                                %g\n", strat.HKm)
		fmt.Printf("  V (km):                                %g\n", strat.VKm)
		fmt.Printf("  Total distance traveled (km):          %g\n", strat.TotalDistanceKm)
		fmt.Printf("  Drone speed (km/h):                    %g\n", strat.SpeedKmh)
		fmt.Printf("  Time needed for the scan (h/days/min): %s\n", strat.ScanTime)
		return
	}

	if *asJSON {
		printJSON(catalog.List())
		return
	}

	fmt.Printf("  %-12s %-12s %-8s %-8s %-8s %-8s %-14s %-8s %s\n",
		"Name", "Area (km²)", "Kw (%)", "Kp (%)", "H (km)", "V (km)", "Distance (km)", "Speed", "Scan time")
	for _, s := range catalog.List() {
		marker := " "
		if s.Name == strategy.DefaultName {
			marker = "*"
		}
		fmt.Printf("%s %-12s %-12g %-8g %-8g %-8g %-8g %-14g %-8g %s\n",
			marker, s.Name, s.AreaKm2, s.KwPct, s.KpPct, s.HKm, s.VKm,
			s.TotalDistanceKm, s.SpeedKmh, s.ScanTime)
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
