package service

import (
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"parkside/internal/entities"
)

// SenderService sends receipt emails through SendGrid. With no API key it
// logs and drops the message, which keeps local setups working.
type SenderService struct {
	apiKey    string
	fromEmail string
	fromName  string
}

func NewSenderService(apiKey, fromEmail, fromName string) *SenderService {
	return &SenderService{apiKey: apiKey, fromEmail: fromEmail, fromName: fromName}
}

func (s *SenderService) SendReleaseReceipt(toEmail string, data entities.ReservationEmailData) {
	subject := fmt.Sprintf("Parkside receipt - reservation %s", data.Code)
	plainText := fmt.Sprintf(
		"Hi %s,\n\nYour parking session has ended.\n\n"+
			"Reservation code: %s\n"+
			"Spot: %s\n"+
			"Vehicle: %s\n"+
			"Check-in: %s\n"+
			"Check-out: %s\n"+
			"Billed hours: %d\n"+
			"Total: $%.2f\n\n"+
			"Thanks for parking with Parkside.",
		data.UserName, data.Code, data.SpotLabel, data.VehiclePlate,
		data.StartTime.Format("02 Jan 2006 15:04 MST"),
		data.EndTime.Format("02 Jan 2006 15:04 MST"),
		data.BillableHours, data.FinalCost,
	)

	if err := s.send(toEmail, data.UserName, subject, plainText); err != nil {
		log.Printf("Receipt email to %s failed: %v", toEmail, err)
	}
}

func (s *SenderService) send(toEmail, toName, subject, plainText string) error {
	if s.apiKey == "" || s.fromEmail == "" {
		log.Printf("SendGrid not configured, dropping email to %s (subject: %s)", toEmail, subject)
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, "")

	response, err := sendgrid.NewSendClient(s.apiKey).Send(message)
	if err != nil {
		return fmt.Errorf("sending via SendGrid: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("SendGrid returned status %d: %s", response.StatusCode, response.Body)
	}
	log.Printf("Email sent to %s (subject: %s)", toEmail, subject)
	return nil
}
