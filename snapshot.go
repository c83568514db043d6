package main

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	snapshotWidth     = 640
	snapshotRowHeight = 32
	snapshotMargin    = 24
	snapshotHeaderH   = 72
)

var (
	snapshotBG     = color.RGBA{0x03, 0x0b, 0x19, 0xff}
	snapshotRow    = color.RGBA{0x0e, 0x2a, 0x57, 0xff}
	snapshotText   = color.RGBA{0xf0, 0xf6, 0xff, 0xff}
	snapshotAccent = color.RGBA{0x7d, 0xd3, 0xfc, 0xff}
	snapshotGold   = color.RGBA{0xfa, 0xcc, 0x15, 0xff}
)

// renderSnapshot draws the current ranking into an image. basicfont keeps
// the server free of font assets; the result is a plain standings table,
// not a copy of the animated client view.
func renderSnapshot(title string, entries []RankedEntry, winnerID string) *image.RGBA {
	height := snapshotHeaderH + snapshotRowHeight*len(entries) + snapshotMargin
	if len(entries) == 0 {
		height += snapshotRowHeight
	}

	img := image.NewRGBA(image.Rect(0, 0, snapshotWidth, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{snapshotBG}, image.Point{}, draw.Src)

	drawString(img, snapshotMargin, 36, snapshotAccent, title)
	drawString(img, snapshotMargin, 56, snapshotText,
		fmt.Sprintf("%d participants · %s", len(entries), time.Now().Format("2006-01-02 15:04")))

	if len(entries) == 0 {
		drawString(img, snapshotMargin, snapshotHeaderH+20, snapshotText, "The leaderboard is empty.")
		return img
	}

	for i, e := range entries {
		top := snapshotHeaderH + i*snapshotRowHeight
		if i%2 == 0 {
			rect := image.Rect(snapshotMargin/2, top, snapshotWidth-snapshotMargin/2, top+snapshotRowHeight)
			draw.Draw(img, rect, &image.Uniform{snapshotRow}, image.Point{}, draw.Src)
		}

		col := snapshotText
		if e.ID == winnerID {
			col = snapshotGold
		}

		baseline := top + snapshotRowHeight/2 + 5
		drawString(img, snapshotMargin, baseline, col, fmt.Sprintf("%d.", e.Position))
		drawString(img, snapshotMargin+48, baseline, col, e.Name)

		points := fmt.Sprintf("%d pts", e.Points)
		drawString(img, snapshotWidth-snapshotMargin-textWidth(points), baseline, col, points)
	}

	return img
}

func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Ceil()
}

func drawString(img *image.RGBA, x, y int, c color.Color, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// snapshotFilename turns the board title into a safe attachment name.
func snapshotFilename(title string) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ' || r == '-' || r == '_':
			return '-'
		default:
			return -1
		}
	}, strings.TrimSpace(title))
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "board"
	}
	return slug + "-snapshot.png"
}

// Snapshot handler: serves the current ranking as a downloadable PNG.
// Export never touches roster, ranking, or session state; a failed encode
// is the client's problem to surface, not the board's.
func snapshotHandler(cfg *Config, bm *BoardManager, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		boardID := ps.ByName("boardid")
		if boardID == "" {
			http.Error(w, "missing board id", http.StatusBadRequest)
			return
		}

		hub, ok := bm.lookup(boardID)
		if !ok {
			http.Error(w, "no such board", http.StatusNotFound)
			return
		}

		entries, winnerID := hub.rankingView()
		img := renderSnapshot(cfg.title, entries, winnerID)

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Disposition", `attachment; filename="`+snapshotFilename(cfg.title)+`"`)
		securityHeaders(cfg, w)

		if err := png.Encode(w, img); err != nil {
			errs <- err

			return
		}

		logf(cfg, "BOARDS: Captured snapshot of %s for %s in %s",
			boardID,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}
