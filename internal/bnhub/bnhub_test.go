package bnhub

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bizmodels "filer/internal/business/models"
	"filer/internal/filing/models"
	id "filer/pkg/domain"
	dErrors "filer/pkg/domain-errors"
	"filer/pkg/platform/circuit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestParseTaxID(t *testing.T) {
	t.Run("splits a valid business number", func(t *testing.T) {
		tax, err := ParseTaxID(" 123456789bc0001 ")
		require.NoError(t, err)
		assert.Equal(t, TaxID{BN9: "123456789", ProgramID: "BC", AccountNumber: "0001"}, tax)
		assert.Equal(t, "123456789BC0001", tax.String())
	})

	for name, raw := range map[string]string{
		"empty":          "",
		"bn9 only":       "123456789",
		"letters in bn9": "12345678XBC0001",
		"digit program":  "12345678912 0001",
		"too long":       "123456789BC00012",
	} {
		t.Run("rejects "+name, func(t *testing.T) {
			_, err := ParseTaxID(raw)
			require.Error(t, err)
			assert.True(t, dErrors.HasKind(err, dErrors.KindDataError))
		})
	}
}

func TestRootElement(t *testing.T) {
	assert.Equal(t, "SBNAcknowledgement", RootElement([]byte(`<?xml version="1.0"?><SBNAcknowledgement><ok/></SBNAcknowledgement>`)))
	assert.Equal(t, "SBNErrorMessage", RootElement([]byte(`<SBNErrorMessage/>`)))
	assert.Equal(t, "", RootElement([]byte(`not xml`)))
	assert.Equal(t, "", RootElement(nil))
}

func testBusiness() *bizmodels.Business {
	return &bizmodels.Business{
		Identifier: "FM1234567",
		LegalName:  "Sunrise Bakery",
		LegalType:  bizmodels.LegalTypeSP,
		TaxID:      "993775204BC0001",
		Offices: []bizmodels.Office{{
			Type:            bizmodels.OfficeBusiness,
			DeliveryAddress: &bizmodels.Address{StreetAddress: "1 Main St", AddressCity: "Victoria", AddressRegion: "BC", AddressCountry: "CA", PostalCode: "V8V 1A1"},
		}},
	}
}

func TestBuilders(t *testing.T) {
	f := &models.Filing{ID: 1234, EffectiveDate: time.Date(2024, 2, 3, 8, 0, 0, 0, time.UTC)}
	h := Header{RequestMode: RequestModeAdd, SubmitterID: "BCREG", TransactionID: "1234-0"}

	t.Run("change status", func(t *testing.T) {
		req, err := BuildChangeStatus(StatusInactive, ReasonDissolved)(testBusiness(), f, h)
		require.NoError(t, err)
		assert.Equal(t, "SBNChangeStatus", req.Root)
		body := string(req.Body)
		assert.Contains(t, body, "<businessRegistrationNumber>993775204</businessRegistrationNumber>")
		assert.Contains(t, body, "<businessProgramIdentifier>BC</businessProgramIdentifier>")
		assert.Contains(t, body, "<businessProgramAccountReferenceNumber>0001</businessProgramAccountReferenceNumber>")
		assert.Contains(t, body, "<programAccountStatusCode>02</programAccountStatusCode>")
		assert.Contains(t, body, "<updateReasonCode>103</updateReasonCode>")
		assert.Contains(t, body, "<effectiveDate>2024-02-03</effectiveDate>")
		assert.Contains(t, body, "<transactionID>1234-0</transactionID>")
		assert.Equal(t, "SBNChangeStatus", RootElement(req.Body))
	})

	t.Run("change name", func(t *testing.T) {
		req, err := BuildChangeName()(testBusiness(), f, h)
		require.NoError(t, err)
		assert.Contains(t, string(req.Body), "<businessName>Sunrise Bakery</businessName>")
	})

	t.Run("change address without mailing address is a data error", func(t *testing.T) {
		_, err := BuildChangeAddress(AddressTypeMailing)(testBusiness(), f, h)
		require.Error(t, err)
		assert.True(t, dErrors.HasKind(err, dErrors.KindDataError))

		req, err := BuildChangeAddress(AddressTypeDelivery)(testBusiness(), f, h)
		require.NoError(t, err)
		assert.Contains(t, string(req.Body), "<addressLine1>1 Main St</addressLine1>")
	})

	t.Run("missing tax id is a data error", func(t *testing.T) {
		b := testBusiness()
		b.TaxID = ""
		_, err := BuildChangeStatus(StatusActive, ReasonRestored)(b, f, h)
		require.Error(t, err)
		assert.True(t, dErrors.HasKind(err, dErrors.KindDataError))
	})
}

type ClientSuite struct {
	suite.Suite
	server  *httptest.Server
	handler http.HandlerFunc
	req     *Request
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	s.handler = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handler(w, r)
	}))
	s.req = &Request{Root: "SBNChangeStatus", Body: []byte(`<SBNChangeStatus/>`)}
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) client(opts ...Option) *Client {
	return NewClient(Config{URL: s.server.URL, SubmitterID: "BCREG", Timeout: 200 * time.Millisecond}, opts...)
}

func (s *ClientSuite) TestAcknowledged() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.Equal(`<SBNChangeStatus/>`, string(body))
		s.Equal("application/xml", r.Header.Get("Content-Type"))
		_, _ = w.Write([]byte(`<SBNAcknowledgement><transactionID>1-0</transactionID></SBNAcknowledgement>`))
	}
	resp, err := s.client().Send(context.Background(), s.req)
	s.Require().NoError(err)
	s.True(resp.Acknowledged())
}

func (s *ClientSuite) TestNotAcknowledged() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<SBNErrorMessage><reason>duplicate</reason></SBNErrorMessage>`))
	}
	resp, err := s.client().Send(context.Background(), s.req)
	s.Require().NoError(err)
	s.False(resp.Acknowledged())
	s.Contains(resp.String(), "duplicate")
}

func (s *ClientSuite) TestTimeoutIsRetryable() {
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}
	_, err := s.client().Send(context.Background(), s.req)
	s.Require().Error(err)
	s.True(dErrors.IsRetryable(err))
}

func (s *ClientSuite) TestOpenCircuitSkipsCall() {
	calls := 0
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}
	breaker := circuit.New("bnhub", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Hour))
	c := s.client(WithBreaker(breaker))

	resp, err := c.Send(context.Background(), s.req)
	s.Require().NoError(err)
	s.False(resp.Acknowledged())
	s.True(breaker.IsOpen())

	_, err = c.Send(context.Background(), s.req)
	s.Require().ErrorIs(err, ErrCircuitOpen)
	s.True(dErrors.IsRetryable(err))
	s.Equal(1, calls)
}

func (s *ClientSuite) TestHeader() {
	h := s.client().NewHeader(id.FilingID(77), 3, "FM1234567")
	s.Equal(Header{RequestMode: "A", SubmitterID: "BCREG", TransactionID: "77-3", PartnerNote: "FM1234567"}, h)
}
