package mail

// Sender delivers outreach email over plain SMTP. The generated Message-ID
// doubles as the correlation key echoed back by inbound webhook events.
type Sender struct {
	Host   string
	Port   int
	User   string
	Pass   string
	Domain string // Message-ID domain, e.g. omics-os.com
}
