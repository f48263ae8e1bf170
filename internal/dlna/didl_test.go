package dlna

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDIDLShape(t *testing.T) {
	didl := BuildDIDL("Big Buck Bunny", "http://10.0.0.2:9000/media/stream.mp4", "video/mp4", 7340032)

	assert.NotContains(t, didl, "\n")
	assert.Contains(t, didl, `<item id="0" parentID="-1" restricted="1">`)
	assert.Contains(t, didl, `<dc:title>Big Buck Bunny</dc:title>`)
	assert.Contains(t, didl, `<upnp:class>object.item.videoItem</upnp:class>`)
	assert.Contains(t, didl, `size="7340032"`)
	assert.Contains(t, didl, `protocolInfo="http-get:*:video/mp4:DLNA.ORG_OP=01;`)
	assert.True(t, strings.HasPrefix(didl, `<DIDL-Lite `))
	assert.True(t, strings.HasSuffix(didl, `</DIDL-Lite>`))
}

func TestBuildDIDLEscapesTitleAndURL(t *testing.T) {
	didl := BuildDIDL(`Tom & Jerry <Collection>`, "http://h/x.mp4?a=1&b=2", "video/mp4", 1)

	assert.Contains(t, didl, `<dc:title>Tom &amp; Jerry &lt;Collection&gt;</dc:title>`)
	assert.Contains(t, didl, `http://h/x.mp4?a=1&amp;b=2`)
	assert.NotContains(t, didl, `Tom & Jerry`)
}

func TestBuildDIDLUsesGivenMIME(t *testing.T) {
	didl := BuildDIDL("x", "http://h/x.mkv", "video/x-matroska", 1)
	assert.Contains(t, didl, `http-get:*:video/x-matroska:`)
}
