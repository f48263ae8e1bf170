package dlna

import (
	"fmt"
	"strings"

	"github.com/wysentanu/localcast/internal/xmlutil"
)

// dlnaFeatures advertises byte-range seeking (DLNA.ORG_OP=01) so renderers
// issue Range requests instead of restarting the stream on seek.
const dlnaFeatures = "DLNA.ORG_OP=01;DLNA.ORG_FLAGS=01700000000000000000000000000000"

// BuildDIDL renders the single-item DIDL-Lite document announced alongside
// the media URL in SetAVTransportURI. The document stays on one line; some
// renderers choke on whitespace between elements.
func BuildDIDL(title, mediaURL, mimeType string, size int64) string {
	protocolInfo := fmt.Sprintf("http-get:*:%s:%s", mimeType, dlnaFeatures)

	var b strings.Builder
	b.WriteString(`<DIDL-Lite xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/"`)
	b.WriteString(` xmlns:dc="http://purl.org/dc/elements/1.1/"`)
	b.WriteString(` xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/">`)
	b.WriteString(`<item id="0" parentID="-1" restricted="1">`)
	b.WriteString(`<dc:title>` + xmlutil.Escape(title) + `</dc:title>`)
	b.WriteString(`<upnp:class>object.item.videoItem</upnp:class>`)
	fmt.Fprintf(&b, `<res protocolInfo="%s" size="%d">`, protocolInfo, size)
	b.WriteString(xmlutil.Escape(mediaURL))
	b.WriteString(`</res>`)
	b.WriteString(`</item>`)
	b.WriteString(`</DIDL-Lite>`)
	return b.String()
}
