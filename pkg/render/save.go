package render

import (
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// savePlot writes a plot to disk. Raster formats honor the configured DPI;
// vector formats go through the stock writers.
func savePlot(p *plot.Plot, w, h vg.Length, dpi int, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		c := vgimg.NewWith(vgimg.UseWH(w, h), vgimg.UseDPI(dpi))
		p.Draw(draw.New(c))

		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()

		switch ext {
		case ".png":
			_, err = vgimg.PngCanvas{Canvas: c}.WriteTo(f)
		case ".jpg", ".jpeg":
			_, err = vgimg.JpegCanvas{Canvas: c}.WriteTo(f)
		default:
			_, err = vgimg.TiffCanvas{Canvas: c}.WriteTo(f)
		}
		return err
	default:
		return p.Save(w, h, path)
	}
}
