package present

import (
	"fmt"

	"github.com/samber/lo"

	"parking-gate/ticket-kiosk/pkg/ticket"
)

const (
	blankField      = "_ _ _ _"
	missingField    = "-"
	zeroFee         = "0"
	zeroElapsedTime = "0 days 0 hours 0 minutes"
	feePrefix       = "Rp. "
)

// CheckInView is the ticket preview on the entry screen.
type CheckInView struct {
	SlipNumber  string `json:"slipNumber"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	PlateNumber string `json:"plateNumber"`
	VehicleType string `json:"vehicleType"`
}

// NewCheckInView accepts nil, every field then shows a blank.
func NewCheckInView(issued *ticket.OpenTicket, locale Locale) CheckInView {
	if issued == nil {
		return CheckInView{
			SlipNumber:  blankField,
			Date:        blankField,
			Time:        blankField,
			PlateNumber: blankField,
			VehicleType: blankField,
		}
	}

	date, clock := dateAndClock(issued.EntryTime, locale, blankField)
	return CheckInView{
		SlipNumber:  orDefault(issued.SlipNumber, blankField),
		Date:        date,
		Time:        clock,
		PlateNumber: orDefault(issued.PlateNumber, blankField),
		VehicleType: orDefault(string(issued.VehicleType), blankField),
	}
}

// CheckOutView is the vehicle data and cashier summary on the exit screen.
type CheckOutView struct {
	PlateNumber   string `json:"plateNumber"`
	VehicleType   string `json:"vehicleType"`
	SlipNumber    string `json:"slipNumber"`
	PaymentMethod string `json:"paymentMethod"`

	EntryDate string `json:"entryDate"`
	ExitDate  string `json:"exitDate"`
	EntryTime string `json:"entryTime"`
	ExitTime  string `json:"exitTime"`

	TotalFee        string `json:"totalFee"`
	ElapsedDuration string `json:"elapsedDuration"`
	PayLabel        string `json:"payLabel"`
}

// NewCheckOutView accepts nil for the screen before any lookup. Entry and
// exit are shown as the store sent them, an exit before the entry is not
// corrected.
func NewCheckOutView(view *ticket.ClosedTicketView, method ticket.PaymentMethod, locale Locale) CheckOutView {
	result := CheckOutView{
		PaymentMethod:   string(method),
		EntryDate:       missingField,
		ExitDate:        missingField,
		EntryTime:       missingField,
		ExitTime:        missingField,
		TotalFee:        FormatFee(""),
		ElapsedDuration: zeroElapsedTime,
	}
	result.PayLabel = "Pay for " + result.TotalFee
	if view == nil {
		return result
	}

	result.PlateNumber = view.PlateNumber
	result.VehicleType = string(view.VehicleType)
	result.SlipNumber = view.SlipNumber
	result.EntryDate, result.EntryTime = dateAndClock(view.EntryTime, locale, missingField)
	result.ExitDate, result.ExitTime = dateAndClock(view.ExitTime, locale, missingField)
	result.TotalFee = FormatFee(view.TotalFee.String())
	result.ElapsedDuration = orDefault(view.ElapsedDuration, zeroElapsedTime)
	result.PayLabel = "Pay for " + result.TotalFee
	return result
}

// FormatFee prefixes the fee as the store computed it.
func FormatFee(fee string) string {
	return fmt.Sprintf("%v%v", feePrefix, orDefault(fee, zeroFee))
}

func dateAndClock(ts ticket.Timestamp, locale Locale, placeholder string) (string, string) {
	t, ok := ts.Time()
	if !ok {
		return placeholder, placeholder
	}
	return FormatDate(t, locale), FormatClock(t)
}

func orDefault(value string, fallback string) string {
	return lo.Ternary(value == "", fallback, value)
}
