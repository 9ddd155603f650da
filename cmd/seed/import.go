package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jhoicas/portfolio-status-api/internal/application/portfolio"
)

type importOptions struct {
	dir      string
	encoding string
	dryRun   bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Importa el catálogo y las asignaciones desde un directorio de CSV",
		Long: "Archivos reconocidos (todos opcionales): " +
			"countries.csv, procedures.csv, product_types.csv, products.csv, statuses.csv, status_portfolios.csv. " +
			"Los registros se insertan o reemplazan por id; nada se elimina.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Directorio con los CSV (requerido)")
	cmd.Flags().StringVar(&opts.encoding, "encoding", "utf-8", "Codificación de los CSV: utf-8, windows-1252, iso-8859-1")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Solo valida y muestra el resumen, sin escribir")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func runImport(ctx context.Context, opts importOptions) error {
	if _, err := os.Stat(opts.dir); err != nil {
		return fmt.Errorf("directorio %q: %w", opts.dir, err)
	}
	batch, err := readBatch(os.DirFS(opts.dir), opts.encoding)
	if err != nil {
		return err
	}
	fmt.Printf("leído %s: %d países, %d procedimientos, %d tipos, %d productos, %d estados, %d asignaciones\n",
		filepath.Clean(opts.dir),
		len(batch.catalogue.Countries), len(batch.catalogue.Procedures), len(batch.catalogue.ProductTypes),
		len(batch.catalogue.Products), len(batch.catalogue.Statuses), len(batch.assignments))
	if opts.dryRun {
		return nil
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.portfolio.Migrate(ctx); err != nil {
		return fmt.Errorf("migrar: %w", err)
	}
	if !batch.catalogue.Empty() {
		res, err := a.catalog.ImportCatalogue(ctx, batch.catalogue)
		if err != nil {
			return fmt.Errorf("importar catálogo: %w", err)
		}
		a.log.Info().Int("rows", len(res.Rows)).Int("skipped", len(res.Skipped)).Msg("catálogo importado")
	}
	if len(batch.assignments) > 0 {
		res, err := a.portfolio.BulkUpdateStatus(ctx, batch.assignments)
		if err != nil {
			return fmt.Errorf("importar asignaciones: %w", err)
		}
		logSkipped(a, res)
	}
	return nil
}

func logSkipped(a *app, res portfolio.BulkResult) {
	for _, sk := range res.Skipped {
		a.log.Warn().Int("line", sk.Index+2).Str("product_id", sk.ProductID).Str("country_id", sk.CountryID).
			Str("reason", sk.Reason).Msg("asignación omitida")
	}
	for _, d := range res.Dangling {
		a.log.Warn().Int("line", d.Index+2).Str("product_id", d.ProductID).Str("country_id", d.CountryID).
			Str("reason", d.Reason).Msg("asignación guardada con referencia inexistente")
	}
	a.log.Info().Int("applied", res.Applied).Int("removed", res.Removed).Int("skipped", len(res.Skipped)).
		Msg("asignaciones importadas")
}
