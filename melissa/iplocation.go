package melissa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

const ipLocationEndpoint = "/iplocation/doiplocation"

// IPLocationResponse is a typed view of an IP Locator reply, built by
// DecodeIPLocation.
type IPLocationResponse struct {
	TransmissionReference Value              `json:"TransmissionReference"`
	TransmissionResults   Value              `json:"TransmissionResults"`
	Version               Value              `json:"Version"`
	TotalRecords          Value              `json:"TotalRecords"`
	Records               []IPLocationRecord `json:"Records"`
}

type IPLocationRecord struct {
	RecordID            Value `json:"RecordID"`
	Result              Value `json:"Result"`
	IPAddress           Value `json:"IPAddress"`
	City                Value `json:"City"`
	Region              Value `json:"Region"`
	PostalCode          Value `json:"PostalCode"`
	CountryName         Value `json:"CountryName"`
	CountryAbbreviation Value `json:"CountryAbbreviation"`
	Latitude            Value `json:"Latitude"`
	Longitude           Value `json:"Longitude"`
	UTC                 Value `json:"UTC"`
	ISPName             Value `json:"ISPName"`
	DomainName          Value `json:"DomainName"`
	ConnectionType      Value `json:"ConnectionType"`
	ConnectionSpeed     Value `json:"ConnectionSpeed"`
	ProxyType           Value `json:"ProxyType"`
	ProxyDescription    Value `json:"ProxyDescription"`
}

// Value holds a scalar that Melissa sends either as a string or as a bare
// number or boolean. null decodes to "".
type Value string

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*v = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	case len(data) > 0 && (data[0] == '{' || data[0] == '['):
		return fmt.Errorf("melissa: expected scalar value, got %s", data)
	default:
		*v = Value(data)
		return nil
	}
}

func (v Value) String() string {
	return string(v)
}

func ipLocationQuery(ipAddress, transmissionReference string) url.Values {
	q := url.Values{}
	q.Set("ip", ipAddress)
	if transmissionReference != "" {
		q.Set("t", transmissionReference)
	}
	return q
}

// IPLocation looks up the geographic location, ISP and connection details of
// an IP address and returns the reply body unchanged. transmissionReference
// is optional and echoed back by the API. Use DecodeIPLocation for a typed
// view.
func (c *Client) IPLocation(ctx context.Context, ipAddress, transmissionReference string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, ServiceIPLocator, ipLocationEndpoint, ipLocationQuery(ipAddress, transmissionReference), "", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// DecodeIPLocation parses an IPLocation reply. Fields it does not know are
// ignored; the raw reply keeps them.
func DecodeIPLocation(raw json.RawMessage) (*IPLocationResponse, error) {
	var reply IPLocationResponse
	if len(bytes.TrimSpace(raw)) == 0 {
		return &reply, nil
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode ip location reply: %w", err)
	}
	return &reply, nil
}
