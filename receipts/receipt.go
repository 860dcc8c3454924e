// Package receipts renders reservation confirmations and signs the QR
// payload printed on them so a host stand can check a guest's booking.
package receipts

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"tablebook/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

var ErrInvalidCode = errors.New("invalid receipt code")

// Payload is the booking data carried by a signed code.
type Payload struct {
	ReservationID string `json:"reservationId"`
	RestaurantID  string `json:"restaurantId"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Code returns reservationID|restaurantID|date|time|signature.
func (s *Signer) Code(res *models.Reservation) string {
	data := strings.Join([]string{res.ID, res.RestaurantID, res.Date, res.Time}, "|")
	return data + "|" + s.sign(data)
}

func (s *Signer) Verify(code string) (Payload, error) {
	parts := strings.Split(code, "|")
	if len(parts) != 5 {
		return Payload{}, ErrInvalidCode
	}
	data := strings.Join(parts[:4], "|")
	if !hmac.Equal([]byte(s.sign(data)), []byte(parts[4])) {
		return Payload{}, ErrInvalidCode
	}
	return Payload{
		ReservationID: parts[0],
		RestaurantID:  parts[1],
		Date:          parts[2],
		Time:          parts[3],
	}, nil
}

// Render writes a one-page PDF confirmation with the code as a QR image.
func Render(w io.Writer, res *models.Reservation, restaurant *models.Restaurant, code string) error {
	qrPNG, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("encode qr: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "Reservation Confirmation")
	pdf.Ln(14)

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 10, restaurant.Name)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 12)
	if restaurant.Location != "" {
		pdf.Cell(0, 10, restaurant.Location)
		pdf.Ln(10)
	}

	rows := [][2]string{
		{"Reservation", res.ID},
		{"Table", res.TableID},
		{"Date", res.Date},
		{"Time", res.Time},
		{"Status", string(res.Status)},
	}
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(35, 8, row[0]+":")
		pdf.SetFont("Arial", "", 12)
		pdf.Cell(0, 8, row[1])
		pdf.Ln(8)
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	pdf.Ln(20)
	pdf.SetFont("Arial", "I", 10)
	pdf.Cell(0, 8, "Show this code at the host stand.")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
