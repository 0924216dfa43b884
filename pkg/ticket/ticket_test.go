package ticket

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEntry(t *testing.T) {
	testCases := []struct {
		name      string
		plate     string
		vehicle   string
		wantEntry Entry
		wantErr   error
	}{
		{
			name:      "lower case plate is upper cased",
			plate:     "b 1234 xyz",
			vehicle:   "MOBIL",
			wantEntry: Entry{PlateNumber: "B 1234 XYZ", VehicleType: Car},
		},
		{
			name:      "motorcycle",
			plate:     "D 99 AB",
			vehicle:   "MOTOR",
			wantEntry: Entry{PlateNumber: "D 99 AB", VehicleType: Motorcycle},
		},
		{
			name:      "truck with surrounding spaces",
			plate:     "  l 7 k  ",
			vehicle:   "TRUK",
			wantEntry: Entry{PlateNumber: "L 7 K", VehicleType: Truck},
		},
		{
			name:    "empty plate",
			plate:   "",
			vehicle: "MOBIL",
			wantErr: ErrEmptyPlate,
		},
		{
			name:    "blank plate",
			plate:   "   ",
			vehicle: "MOBIL",
			wantErr: ErrEmptyPlate,
		},
		{
			name:    "unknown vehicle",
			plate:   "B 1",
			vehicle: "SEPEDA",
			wantErr: ErrInvalidVehicleType,
		},
		{
			name:    "lower case vehicle",
			plate:   "B 1",
			vehicle: "mobil",
			wantErr: ErrInvalidVehicleType,
		},
		{
			name:    "missing vehicle",
			plate:   "B 1",
			vehicle: "",
			wantErr: ErrInvalidVehicleType,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entry, err := ValidateEntry(tc.plate, tc.vehicle)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				var validationErr *ValidationError
				require.True(t, errors.As(err, &validationErr))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantEntry, entry)
		})
	}
}

func TestValidateEntry_is_deterministic(t *testing.T) {
	first, err := ValidateEntry("b 1234 xyz", "MOBIL")
	require.NoError(t, err)

	second, err := ValidateEntry("b 1234 xyz", "MOBIL")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNewPaymentRequest_payload(t *testing.T) {
	var view ClosedTicketView
	err := json.Unmarshal([]byte(`{
		"id": 7,
		"jenisKendaraan": "MOBIL",
		"nomorPlat": "B 1234 XYZ",
		"nomorParkingSlip": "A001",
		"tanggalMasuk": "2024-01-01T08:00:00Z",
		"tanggalKeluar": "2024-01-01T10:00:00Z",
		"totalHarga": 5000,
		"totalWaktu": "0 days 2 hours 0 minutes"
	}`), &view)
	require.NoError(t, err)

	payload, err := json.Marshal(NewPaymentRequest(view, Cash))
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"nomorTiket":"A001","totalHarga":5000,"tanggalKeluar":"2024-01-01T10:00:00Z","metodePembayaran":"CASH"}`,
		string(payload),
	)
}

func TestID_accepts_number_and_string(t *testing.T) {
	var numeric struct {
		ID ID `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id": 42}`), &numeric))
	assert.Equal(t, ID("42"), numeric.ID)

	var text struct {
		ID ID `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id": "t-42"}`), &text))
	assert.Equal(t, ID("t-42"), text.ID)
}

func TestTimestamp(t *testing.T) {
	withZone := ParseTimestamp("2024-01-01T10:00:00Z")
	got, ok := withZone.Time()
	require.True(t, ok)
	assert.True(t, got.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))

	local := ParseTimestamp("2024-01-01T10:00:00.123456")
	got, ok = local.Time()
	require.True(t, ok)
	assert.Equal(t, 10, got.Hour())
	assert.Equal(t, "2024-01-01T10:00:00.123456", local.String())

	_, ok = ParseTimestamp("kemarin").Time()
	assert.False(t, ok)

	_, ok = Timestamp{}.Time()
	assert.False(t, ok)
}

func TestTimestamp_In(t *testing.T) {
	wib := time.FixedZone("WIB", 7*60*60)
	layout := "2006-01-02 15:04:05 MST"

	got, ok := ParseTimestamp("2024-01-01T20:00:00Z").In(wib)
	require.True(t, ok)
	assert.Equal(t, "2024-01-02 03:00:00 WIB", got.Format(layout))

	got, ok = ParseTimestamp("2024-01-01T20:00:00+07:00").In(wib)
	require.True(t, ok)
	assert.Equal(t, "2024-01-01 20:00:00 WIB", got.Format(layout))

	got, ok = ParseTimestamp("2024-01-01T20:00:00").In(wib)
	require.True(t, ok)
	assert.Equal(t, "2024-01-01 20:00:00 WIB", got.Format(layout))
}

func TestTimestamp_round_trips_verbatim(t *testing.T) {
	var ticket OpenTicket
	require.NoError(t, json.Unmarshal([]byte(`{"tanggalMasuk":"2024-03-05T07:08:09.5"}`), &ticket))

	out, err := json.Marshal(ticket.EntryTime)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-05T07:08:09.5"`, string(out))
}
