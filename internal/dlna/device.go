package dlna

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/wysentanu/localcast/internal/xmlutil"
)

// ServiceType is the AVTransport service URN this tool drives.
const ServiceType = "urn:schemas-upnp-org:service:AVTransport:1"

// Device is a discovered renderer with its AVTransport control endpoint
// already resolved from the device description.
type Device struct {
	FriendlyName string `json:"friendly_name"`
	Location     string `json:"location"`
	ControlURL   string `json:"control_url"`
}

func (d Device) String() string {
	return fmt.Sprintf("%s (%s)", d.FriendlyName, d.Location)
}

// ResolveControlURL extracts the control URL of the wanted service from a
// device description document and makes it absolute.
//
// The base is the trimmed URLBase element when present, otherwise the
// scheme and authority of the description's own location. Relative control
// URLs starting with "/" attach to the base directly; any other relative
// form gets a "/" inserted.
func ResolveControlURL(location, description, serviceType string) (string, error) {
	base, err := descriptionBase(location, description)
	if err != nil {
		return "", err
	}

	typeIdx := strings.Index(description, serviceType)
	if typeIdx == -1 {
		return "", fmt.Errorf("dlna: service %s not in description", serviceType)
	}

	// The <controlURL> belongs to the <service> block that carries the
	// matching <serviceType>, so scan backwards for the block opening.
	svcStart := strings.LastIndex(description[:typeIdx], "<service>")
	if svcStart == -1 {
		return "", fmt.Errorf("dlna: no <service> block before %s", serviceType)
	}
	block := description[svcStart:]
	if end := strings.Index(block, "</service>"); end != -1 {
		block = block[:end]
	}

	controlURL, ok := xmlutil.Between(block, "<controlURL>", "</controlURL>")
	if !ok {
		return "", fmt.Errorf("dlna: service %s has no controlURL", serviceType)
	}
	controlURL = strings.TrimSpace(xmlutil.Unescape(controlURL))
	if controlURL == "" {
		return "", fmt.Errorf("dlna: service %s has empty controlURL", serviceType)
	}

	switch {
	case strings.HasPrefix(controlURL, "http"):
		return controlURL, nil
	case strings.HasPrefix(controlURL, "/"):
		return base + controlURL, nil
	default:
		return base + "/" + controlURL, nil
	}
}

func descriptionBase(location, description string) (string, error) {
	if urlBase, ok := xmlutil.Between(description, "<URLBase>", "</URLBase>"); ok {
		urlBase = strings.TrimSpace(urlBase)
		if urlBase != "" {
			return strings.TrimSuffix(urlBase, "/"), nil
		}
	}

	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("dlna: bad description location %q: %w", location, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("dlna: description location %q has no authority", location)
	}
	return u.Scheme + "://" + u.Host, nil
}

// friendlyName pulls the renderer's display name out of its description.
func friendlyName(description string) string {
	name, ok := xmlutil.Between(description, "<friendlyName>", "</friendlyName>")
	if !ok {
		return ""
	}
	return strings.TrimSpace(xmlutil.Unescape(name))
}
