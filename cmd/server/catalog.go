package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"warlock-arena/internal/catalog"
	"warlock-arena/internal/config"
	"warlock-arena/internal/resource"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the resource catalog",
	Long:  `Print every ability and audio clip with its stable hash, and the registry fingerprints clients must match.`,
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().StringVar(&catDir, "catalog", "", "Catalog directory with abilities/ and audio/ (overrides CATALOG_DIR)")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	dir := config.CatalogFromEnv().Dir
	if cmd.Flags().Changed("catalog") {
		dir = catDir
	}

	cat, err := catalog.Load(dir, nil)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tHASH")
	for _, name := range cat.Abilities.Names() {
		d, h, _ := cat.Abilities.Lookup(name)
		fmt.Fprintf(w, "ability/%s\t%s\t%s\n", d.Kind, name, h)
	}
	for _, name := range cat.Clips.Names() {
		fmt.Fprintf(w, "audio\t%s\t%s\n", name, resource.StableHash(name))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nabilities fingerprint %016x\naudio fingerprint     %016x\n",
		cat.Abilities.Fingerprint(), cat.Clips.Fingerprint())
	return nil
}
