package pdfexport

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"

	"github.com/polynest/nester/internal/geometry"
	"github.com/polynest/nester/internal/session"
)

// Export renders layout to a one-page-per-bin PDF at outPath. Each page
// is produced by rasterizing the bin (RenderBin) to a temporary PNG,
// then letting pdfcpu import the PNGs into a single PDF document.
func Export(layout session.Layout, binWidth, binHeight float64, originalByShapeID map[int]geometry.Polygon, outPath string) error {
	if len(layout.Bins) == 0 {
		return fmt.Errorf("pdfexport: layout has no bins to render")
	}

	tmpDir, err := os.MkdirTemp("", "nester-pdfexport-*")
	if err != nil {
		return fmt.Errorf("pdfexport: creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pngPaths := make([]string, 0, len(layout.Bins))
	for i, bin := range layout.Bins {
		img, err := RenderBin(binWidth, binHeight, bin, originalByShapeID)
		if err != nil {
			return fmt.Errorf("pdfexport: rendering bin %d: %w", i, err)
		}

		pngPath := filepath.Join(tmpDir, fmt.Sprintf("bin-%04d.png", i))
		f, err := os.Create(pngPath)
		if err != nil {
			return fmt.Errorf("pdfexport: creating %s: %w", pngPath, err)
		}
		err = png.Encode(f, img)
		closeErr := f.Close()
		if err != nil {
			return fmt.Errorf("pdfexport: encoding bin %d: %w", i, err)
		}
		if closeErr != nil {
			return fmt.Errorf("pdfexport: closing %s: %w", pngPath, closeErr)
		}
		pngPaths = append(pngPaths, pngPath)
	}

	imp := pdfcpu.DefaultImportConfig()

	if err := api.ImportImagesFile(pngPaths, outPath, imp, nil); err != nil {
		return fmt.Errorf("pdfexport: assembling %s: %w", outPath, err)
	}
	return nil
}
