package dlna

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wysentanu/localcast/internal/xmlutil"
)

const soapBodyLimit = 256 * 1024

// FaultError is a SOAP 500 carrying a UPnP fault.
type FaultError struct {
	Action      string
	FaultString string
	Code        string
	Description string
}

func (e *FaultError) Error() string {
	msg := fmt.Sprintf("dlna: %s fault: %s", e.Action, e.FaultString)
	if e.Code != "" || e.Description != "" {
		msg += fmt.Sprintf(" (code %s: %s)", e.Code, e.Description)
	}
	return msg
}

// TransportError is a non-200, non-500 HTTP response to a SOAP action.
type TransportError struct {
	Action string
	Status int
	Body   string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("dlna: %s returned status %d: %s", e.Action, e.Status, e.Body)
}

// MalformedError is a 200 response missing the expected action response
// element.
type MalformedError struct {
	Action string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("dlna: %s response missing %sResponse element", e.Action, e.Action)
}

// SOAPClient posts UPnP action envelopes and decodes the responses.
type SOAPClient struct {
	client *http.Client
	log    zerolog.Logger
}

// NewSOAPClient builds a client with the given per-action timeout.
func NewSOAPClient(timeout time.Duration, logger zerolog.Logger) *SOAPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SOAPClient{
		client: &http.Client{Timeout: timeout},
		log:    logger.With().Str("component", "soap").Logger(),
	}
}

// Invoke posts a single UPnP action and returns the child elements of the
// {action}Response block as a name to value map. Argument order is
// preserved on the wire; values are entity-escaped going out and unescaped
// coming back.
func (c *SOAPClient) Invoke(ctx context.Context, controlURL, serviceType, action string, args [][2]string) (map[string]string, error) {
	envelope := buildEnvelope(serviceType, action, args)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, controlURL, strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("dlna: build %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", `text/xml; charset="utf-8"`)
	req.Header.Set("SOAPAction", fmt.Sprintf("%q", serviceType+"#"+action))

	c.log.Debug().Str("action", action).Str("url", controlURL).Msg("invoking")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dlna: %s: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, soapBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("dlna: read %s response: %w", action, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return parseActionResponse(string(body), action)
	case http.StatusInternalServerError:
		return nil, parseFault(string(body), action)
	default:
		return nil, &TransportError{Action: action, Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}
}

func buildEnvelope(serviceType, action string, args [][2]string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	b.WriteString(`<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/" s:encodingStyle="http://schemas.xmlsoap.org/soap/encoding/">`)
	b.WriteString(`<s:Body>`)
	b.WriteString(`<u:` + action + ` xmlns:u="` + serviceType + `">`)
	for _, arg := range args {
		b.WriteString("<" + arg[0] + ">")
		b.WriteString(xmlutil.Escape(arg[1]))
		b.WriteString("</" + arg[0] + ">")
	}
	b.WriteString(`</u:` + action + `>`)
	b.WriteString(`</s:Body>`)
	b.WriteString(`</s:Envelope>`)
	return b.String()
}

// parseActionResponse locates the {action}Response element and decodes its
// direct children.
func parseActionResponse(body, action string) (map[string]string, error) {
	marker := action + "Response"
	idx := strings.Index(body, marker)
	if idx == -1 {
		return nil, &MalformedError{Action: action}
	}
	rest := body[idx:]
	open := strings.IndexByte(rest, '>')
	if open == -1 {
		return nil, &MalformedError{Action: action}
	}

	values := xmlutil.ChildValues(rest[open+1:])
	for name, value := range values {
		values[name] = xmlutil.Unescape(value)
	}
	return values, nil
}

func parseFault(body, action string) error {
	fault := &FaultError{Action: action}
	if s, ok := xmlutil.Between(body, "<faultstring>", "</faultstring>"); ok {
		fault.FaultString = strings.TrimSpace(s)
	}
	if s, ok := xmlutil.Between(body, "<errorCode>", "</errorCode>"); ok {
		fault.Code = strings.TrimSpace(s)
	}
	if s, ok := xmlutil.Between(body, "<errorDescription>", "</errorDescription>"); ok {
		fault.Description = strings.TrimSpace(xmlutil.Unescape(s))
	}
	return fault
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
