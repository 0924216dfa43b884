package present

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"parking-gate/ticket-kiosk/pkg/ticket"
)

const (
	TicketWidth  = 300
	TicketHeight = 250

	ticketTitle  = "TIKET PARKIR"
	ticketFooter = "Simpan tiket ini dengan baik"

	labelX  = 30
	colonX  = 120
	valueX  = 140
	firstY  = 60
	rowStep = 30
	border  = 2
)

var face = basicfont.Face7x13

// TicketFilename is the download name of the printable ticket.
func TicketFilename(plateNumber string) string {
	return "ticket-" + plateNumber + ".png"
}

// RenderTicket writes the printable ticket as a PNG. Date and time come
// from the entry time of the ticket, now is printed instead when the
// store sent an entry time that can not be read.
func RenderTicket(w io.Writer, issued *ticket.OpenTicket, now time.Time, locale Locale) error {
	view := NewCheckInView(issued, locale)
	if view.Date == blankField {
		view.Date = FormatDate(now, locale)
		view.Time = FormatClock(now)
	}

	img := image.NewRGBA(image.Rect(0, 0, TicketWidth, TicketHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	drawFrame(img, image.Rect(10, 10, TicketWidth-10, TicketHeight-10))

	// Drawn twice, one pixel apart, to stand out like bold text.
	drawCentered(img, ticketTitle, 20)
	drawText(img, ticketTitle, centerX(ticketTitle)+1, 20)

	rows := []struct {
		label string
		value string
	}{
		{"Nomor Tiket", view.SlipNumber},
		{"Tanggal", view.Date},
		{"Jam Masuk", view.Time},
		{"Plat Nomor", view.PlateNumber},
		{"Jenis", view.VehicleType},
	}
	for i, row := range rows {
		y := firstY + i*rowStep
		drawText(img, row.label, labelX, y)
		drawText(img, ":", colonX, y)
		drawText(img, row.value, valueX, y)
	}

	drawCentered(img, ticketFooter, 220)

	return png.Encode(w, img)
}

func drawFrame(img draw.Image, r image.Rectangle) {
	black := image.NewUniform(color.Black)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+border),
		image.Rect(r.Min.X, r.Max.Y-border, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+border, r.Max.Y),
		image.Rect(r.Max.X-border, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, edge := range edges {
		draw.Draw(img, edge, black, image.Point{}, draw.Src)
	}
}

// drawText draws s with its top left corner at x, top.
func drawText(img draw.Image, s string, x int, top int) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(x, top+face.Ascent),
	}
	drawer.DrawString(s)
}

func drawCentered(img draw.Image, s string, top int) {
	drawText(img, s, centerX(s), top)
}

func centerX(s string) int {
	width := font.MeasureString(face, s).Ceil()
	return (TicketWidth - width) / 2
}
