package ticket

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/samber/lo"
)

type VehicleType string

const (
	Car        VehicleType = "MOBIL"
	Motorcycle VehicleType = "MOTOR"
	Truck      VehicleType = "TRUK"
)

var VehicleTypes = []VehicleType{Car, Motorcycle, Truck}

func (v VehicleType) Valid() bool {
	return lo.Contains(VehicleTypes, v)
}

type PaymentMethod string

const (
	Cash PaymentMethod = "CASH"
)

// ID is assigned by the store. Older store builds send a number, newer
// ones a string, so both are accepted and kept as text.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Timestamp keeps the store's text verbatim so it can be echoed back
// unchanged in a payment request. Parsing is best effort.
type Timestamp struct {
	raw string
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{raw: t.Format(time.RFC3339)}
}

func ParseTimestamp(raw string) Timestamp {
	return Timestamp{raw: raw}
}

func (ts Timestamp) String() string {
	return ts.raw
}

func (ts Timestamp) IsZero() bool {
	return ts.raw == ""
}

// Time parses the raw text into the kiosk's local time.
func (ts Timestamp) Time() (time.Time, bool) {
	return ts.In(time.Local)
}

// In parses the raw text and converts it to loc. Timestamps without a zone
// are taken as already being in loc, which is what the store emits.
func (ts Timestamp) In(loc *time.Location) (time.Time, bool) {
	if ts.raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, ts.raw, loc); err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if ts.raw == "" {
		return []byte("null"), nil
	}
	return json.Marshal(ts.raw)
}

func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		ts.raw = ""
		return nil
	}
	return json.Unmarshal(data, &ts.raw)
}

// Entry is a validated check-in form.
type Entry struct {
	PlateNumber string      `json:"nomorPlat"`
	VehicleType VehicleType `json:"jenisKendaraan"`
}

// OpenTicket is what the store issues at check-in.
type OpenTicket struct {
	ID          ID          `json:"id"`
	VehicleType VehicleType `json:"jenisKendaraan"`
	PlateNumber string      `json:"nomorPlat"`
	EntryTime   Timestamp   `json:"tanggalMasuk"`
	SlipNumber  string      `json:"nomorParkingSlip"`
}

// ClosedTicketView is an open ticket as seen at the exit gate, with the
// fee and duration the store computed for it.
type ClosedTicketView struct {
	ID              ID          `json:"id"`
	VehicleType     VehicleType `json:"jenisKendaraan"`
	PlateNumber     string      `json:"nomorPlat"`
	SlipNumber      string      `json:"nomorParkingSlip"`
	EntryTime       Timestamp   `json:"tanggalMasuk"`
	ExitTime        Timestamp   `json:"tanggalKeluar"`
	TotalFee        json.Number `json:"totalHarga"`
	ElapsedDuration string      `json:"totalWaktu"`
}

type PaymentRequest struct {
	SlipNumber    string        `json:"nomorTiket"`
	TotalFee      json.Number   `json:"totalHarga"`
	ExitTime      Timestamp     `json:"tanggalKeluar"`
	PaymentMethod PaymentMethod `json:"metodePembayaran"`
}

// NewPaymentRequest is the only way a payment request is built.
func NewPaymentRequest(view ClosedTicketView, method PaymentMethod) PaymentRequest {
	return PaymentRequest{
		SlipNumber:    view.SlipNumber,
		TotalFee:      view.TotalFee,
		ExitTime:      view.ExitTime,
		PaymentMethod: method,
	}
}

// Confirmation is the closed ticket echoed back by the store after payment.
type Confirmation struct {
	ID            ID            `json:"id,omitempty"`
	SlipNumber    string        `json:"nomorParkingSlip,omitempty"`
	PlateNumber   string        `json:"nomorPlat,omitempty"`
	ExitTime      Timestamp     `json:"tanggalKeluar"`
	TotalFee      json.Number   `json:"totalHarga,omitempty"`
	PaymentMethod PaymentMethod `json:"metodePembayaran,omitempty"`
}

// Artifact is the image uploaded at the exit gate.
type Artifact struct {
	Filename string
	Content  []byte
}

func (a Artifact) Empty() bool {
	return len(a.Content) == 0
}

// ValidateEntry checks the check-in form and normalizes the plate.
func ValidateEntry(plateNumber string, vehicleType string) (Entry, error) {
	plate := strings.TrimSpace(plateNumber)
	if plate == "" {
		return Entry{}, &ValidationError{Field: "nomorPlat", Err: ErrEmptyPlate}
	}

	vehicle := VehicleType(vehicleType)
	if !vehicle.Valid() {
		return Entry{}, &ValidationError{Field: "jenisKendaraan", Err: ErrInvalidVehicleType}
	}

	return Entry{
		PlateNumber: strings.ToUpper(plate),
		VehicleType: vehicle,
	}, nil
}
