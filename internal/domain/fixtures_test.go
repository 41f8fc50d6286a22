package domain

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	sampleEventID  = "quakeml:earthquake.usgs.gov/fdsnws/event/1/query?eventid=ci14517572&format=quakeml"
	sampleOriginID = "quakeml:earthquake.usgs.gov/archive/product/origin/ci14517572/ci/1452046560470/product.xml"
)

func loadSample(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "sample.quakeml"))
	require.NoError(t, err)
	return string(data)
}

// quakeml wraps event fragments in a minimal document.
func quakeml(events ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<q:quakeml xmlns="http://quakeml.org/xmlns/bed/1.2" xmlns:q="http://quakeml.org/xmlns/quakeml/1.2">
<eventParameters publicID="smi:test/catalog">
` + strings.Join(events, "\n") + `
<creationInfo><creationTime>2024-01-01T00:00:00Z</creationTime></creationInfo>
</eventParameters>
</q:quakeml>`
}

// attr quotes and escapes an attribute value; FDSN ids carry query strings.
func attr(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return `"` + b.String() + `"`
}

func eventXML(id string, children ...string) string {
	return fmt.Sprintf(`<event publicID=%s>%s</event>`, attr(id), strings.Join(children, ""))
}

func originXML(id string) string {
	return fmt.Sprintf(`<origin publicID=%s>
<time><value>2024-01-01T12:00:00.000Z</value></time>
<longitude><value>-120.5</value></longitude>
<latitude><value>36.1</value></latitude>
<depth><value>10000</value></depth>
</origin>`, attr(id))
}

func magnitudeXML(id string, value string) string {
	return fmt.Sprintf(`<magnitude publicID=%s><mag><value>%s</value></mag><type>ml</type></magnitude>`, attr(id), value)
}

func ref(s string) *ResourceReference {
	r := ResourceReference(s)
	return &r
}

func testOrigin(id string) Origin {
	return Origin{PublicID: ResourceReference(id)}
}

func testMagnitude(id string, value float64) Magnitude {
	return Magnitude{PublicID: ResourceReference(id), Mag: RealQuantity{Value: value}}
}
