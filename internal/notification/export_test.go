package notification

func (m *SMTPMailer) SetSendFunc(f sendFunc) {
	m.send = f
}
