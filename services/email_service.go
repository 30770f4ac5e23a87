package services

import (
	"fmt"
	"time"

	"leasekeeper/config"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
)

// OverdueNotice - данные письма о просроченном обязательстве
type OverdueNotice struct {
	To           string
	Recipient    string
	ObligationID uint
	ContractID   uint
	PropertyName string
	TenantName   string
	Period       string
	DueDate      time.Time
	AmountDue    decimal.Decimal
}

// Notifier отправляет уведомления ответственным сотрудникам
type Notifier interface {
	SendOverdueNotification(n OverdueNotice) error
}

// EmailService предоставляет методы для отправки email
type EmailService struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailService создает новый экземпляр EmailService
func NewEmailService(cfg *config.Config) *EmailService {
	dialer := gomail.NewDialer(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
	)

	return &EmailService{
		dialer: dialer,
		from:   cfg.SMTP.From,
	}
}

// SendEmail отправляет email
func (s *EmailService) SendEmail(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("ошибка отправки email: %w", err)
	}

	return nil
}

// SendOverdueNotification отправляет уведомление о просрочке оплаты
func (s *EmailService) SendOverdueNotification(n OverdueNotice) error {
	subject, body := overdueMessage(n)
	return s.SendEmail(n.To, subject, body)
}

// overdueMessage формирует тему и тело письма о просрочке
func overdueMessage(n OverdueNotice) (string, string) {
	subject := fmt.Sprintf("Просрочена оплата аренды за %s", n.Period)
	body := fmt.Sprintf(`
		<h2>Просроченный платеж</h2>
		<p>%s, по договору #%d оплата не поступила в срок.</p>
		<p>Объект: %s</p>
		<p>Арендатор: %s</p>
		<p>Период: %s</p>
		<p>Срок оплаты: %s</p>
		<p>Сумма: %s</p>
	`, n.Recipient, n.ContractID, n.PropertyName, n.TenantName, n.Period,
		n.DueDate.Format("02.01.2006"), n.AmountDue.StringFixed(2))
	return subject, body
}
