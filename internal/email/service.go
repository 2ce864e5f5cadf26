package email

import (
	"fmt"
	"net/smtp"
	"strings"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service handles email sending via SMTP
type Service struct {
	addr     string
	from     string
	sendMail sendFunc
}

// NewService creates a new email service for the SMTP server at addr (host:port)
func NewService(addr, from string) *Service {
	return &Service{
		addr:     addr,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(to string, o Order) error {
	body, err := BuildOrderConfirmationBody(o)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Order confirmation #%s", shortID(o.ID))
	return s.send([]string{to}, subject, body)
}

// SendLowStockAlert tells the back office that a unit ran low or out of stock
func (s *Service) SendLowStockAlert(to string, a StockAlert) error {
	body, err := BuildLowStockAlertBody(a)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Stock alert: %s (%s) is %s", a.ProductName, a.UnitType, statusLabel(a.Status))
	return s.send([]string{to}, subject, body)
}

func (s *Service) send(to []string, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, strings.Join(to, ", "), subject, body)
	return s.sendMail(s.addr, nil, s.from, to, []byte(msg))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
