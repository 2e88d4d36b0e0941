package email

import (
	"fmt"
	"net/smtp"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service sends operational mail through an SMTP relay.
type Service struct {
	host     string
	port     string
	from     string
	sendMail SendFunc
}

func NewService(host, port, from string) *Service {
	return &Service{
		host:     host,
		port:     port,
		from:     from,
		sendMail: smtp.SendMail,
	}
}

// WithSender replaces the SMTP transport.
func (s *Service) WithSender(fn SendFunc) *Service {
	s.sendMail = fn
	return s
}

// SendDriftAlert reports clamped sell adjustments for one order.
func (s *Service) SendDriftAlert(to, orderID string, lines []ClampLine) error {
	body, err := BuildDriftAlertBody(orderID, lines)
	if err != nil {
		return fmt.Errorf("render drift alert: %w", err)
	}
	subject := fmt.Sprintf("[inventory] Stock drift on order %s", orderID)
	return s.send(to, subject, body)
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return s.sendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
