package dlna

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSOAPClient() *SOAPClient {
	return NewSOAPClient(2*time.Second, zerolog.Nop())
}

func TestInvokeParsesResponseValues(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<s:Envelope xmlns:s="http://schemas.xmlsoap.org/soap/envelope/"><s:Body>
<u:GetPositionInfoResponse xmlns:u="urn:schemas-upnp-org:service:AVTransport:1">
<Track>1</Track>
<TrackDuration>01:52:30</TrackDuration>
<RelTime>00:00:42</RelTime>
</u:GetPositionInfoResponse>
</s:Body></s:Envelope>`))
	}))
	defer srv.Close()

	values, err := testSOAPClient().Invoke(context.Background(), srv.URL, ServiceType, "GetPositionInfo",
		[][2]string{{"InstanceID", "0"}})
	require.NoError(t, err)
	assert.Equal(t, "01:52:30", values["TrackDuration"])
	assert.Equal(t, "00:00:42", values["RelTime"])
}

func TestInvokeSendsEnvelopeAndHeaders(t *testing.T) {
	var gotBody, gotAction, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotAction = r.Header.Get("SOAPAction")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`<u:PlayResponse xmlns:u="x"></u:PlayResponse>`))
	}))
	defer srv.Close()

	_, err := testSOAPClient().Invoke(context.Background(), srv.URL, ServiceType, "Play",
		[][2]string{{"InstanceID", "0"}, {"Speed", "1"}})
	require.NoError(t, err)

	assert.Equal(t, `"urn:schemas-upnp-org:service:AVTransport:1#Play"`, gotAction)
	assert.Equal(t, `text/xml; charset="utf-8"`, gotContentType)
	assert.Contains(t, gotBody, `<?xml version="1.0" encoding="utf-8"?>`)
	assert.Contains(t, gotBody, `<u:Play xmlns:u="urn:schemas-upnp-org:service:AVTransport:1">`)
	assert.Contains(t, gotBody, `<InstanceID>0</InstanceID><Speed>1</Speed>`)
}

func TestInvokeEscapesArgumentValues(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Write([]byte(`<u:SetAVTransportURIResponse xmlns:u="x"></u:SetAVTransportURIResponse>`))
	}))
	defer srv.Close()

	didl := `<DIDL-Lite><item id="0"/></DIDL-Lite>`
	_, err := testSOAPClient().Invoke(context.Background(), srv.URL, ServiceType, "SetAVTransportURI",
		[][2]string{{"CurrentURIMetaData", didl}})
	require.NoError(t, err)

	assert.Contains(t, gotBody, `&lt;DIDL-Lite&gt;&lt;item id=&quot;0&quot;/&gt;&lt;/DIDL-Lite&gt;`)
	assert.NotContains(t, gotBody, `<DIDL-Lite>`)
}

func TestInvokeFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`<s:Envelope><s:Body><s:Fault>
<faultstring>UPnPError</faultstring>
<detail><UPnPError><errorCode>716</errorCode><errorDescription>Resource not found</errorDescription></UPnPError></detail>
</s:Fault></s:Body></s:Envelope>`))
	}))
	defer srv.Close()

	_, err := testSOAPClient().Invoke(context.Background(), srv.URL, ServiceType, "Play", nil)
	var fault *FaultError
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "Play", fault.Action)
	assert.Equal(t, "UPnPError", fault.FaultString)
	assert.Equal(t, "716", fault.Code)
	assert.Equal(t, "Resource not found", fault.Description)
}

func TestInvokeTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testSOAPClient().Invoke(context.Background(), srv.URL, ServiceType, "Stop", nil)
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, http.StatusNotFound, transport.Status)
	assert.Contains(t, transport.Body, "not here")
}

func TestInvokeMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>this is not soap</html>`))
	}))
	defer srv.Close()

	_, err := testSOAPClient().Invoke(context.Background(), srv.URL, ServiceType, "Pause", nil)
	var malformed *MalformedError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "Pause", malformed.Action)
}

func TestInvokeNetworkError(t *testing.T) {
	_, err := testSOAPClient().Invoke(context.Background(), "http://127.0.0.1:1/ctrl", ServiceType, "Play", nil)
	require.Error(t, err)
	var fault *FaultError
	assert.False(t, errors.As(err, &fault))
}
