package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/srg/cscbridge/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the GATT profiles the bridge can publish",
	Args:  cobra.NoArgs,
	RunE:  runProfiles,
}

func init() {
	profilesCmd.Flags().Bool("json", false, "Output as JSON")
}

type profileEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Service     string   `json:"service"`
	Measurement string   `json:"measurement"`
	Feature     string   `json:"feature,omitempty"`
	Channels    []string `json:"channels"`
}

func profileEntries(t *profile.Table) []profileEntry {
	var out []profileEntry
	for _, def := range t.Definitions() {
		e := profileEntry{
			ID:          def.ID.String(),
			Name:        def.Name,
			Service:     profile.Key(def.Service),
			Measurement: profile.Key(def.Measurement),
		}
		if def.HasFeature() {
			e.Feature = profile.Key(def.Feature)
		}
		for _, k := range def.Channels {
			e.Channels = append(e.Channels, k.String())
		}
		out = append(out, e)
	}
	return out
}

func runProfiles(cmd *cobra.Command, _ []string) error {
	entries := profileEntries(profile.DefaultTable())

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSERVICE\tMEASUREMENT\tFEATURE\tCHANNELS")
	for _, e := range entries {
		feature := e.Feature
		if feature == "" {
			feature = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.Name, e.Service, e.Measurement, feature, strings.Join(e.Channels, ","))
	}
	return w.Flush()
}
