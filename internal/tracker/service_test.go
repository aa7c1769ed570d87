package tracker

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Client

import (
	"context"
	"errors"
	"testing"
	"time"

	"filer/internal/bnhub"
	bizmodels "filer/internal/business/models"
	"filer/internal/filing/models"
	"filer/internal/tracker/mocks"
	trackermodels "filer/internal/tracker/models"
	"filer/internal/tracker/store"
	id "filer/pkg/domain"
	dErrors "filer/pkg/domain-errors"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type SynchronizeSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	client *mocks.MockClient
	store  *store.InMemoryStore
	biz    *bizmodels.Business
	filing *models.Filing
	build  bnhub.BuildFunc
}

func TestSynchronizeSuite(t *testing.T) {
	suite.Run(t, new(SynchronizeSuite))
}

func (s *SynchronizeSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.client = mocks.NewMockClient(s.ctrl)
	s.store = store.NewMemory()
	s.biz = &bizmodels.Business{
		ID:         id.BusinessID(5),
		Identifier: "FM1000001",
		LegalName:  "Sunrise Bakery",
		LegalType:  bizmodels.LegalTypeSP,
		TaxID:      "993775204BC0001",
	}
	s.filing = &models.Filing{
		ID:            id.FilingID(1234),
		Type:          models.TypeDissolution,
		Status:        models.StatusPaid,
		EffectiveDate: time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC),
	}
	s.build = bnhub.BuildChangeStatus(bnhub.StatusInactive, bnhub.ReasonDissolved)
	s.client.EXPECT().NewHeader(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(filingID id.FilingID, retry int, note string) bnhub.Header {
			return bnhub.Header{RequestMode: "A", SubmitterID: "BCREG", TransactionID: bnhub.TransactionID(filingID, retry), PartnerNote: note}
		}).AnyTimes()
}

func (s *SynchronizeSuite) service(cfg Config) *Service {
	return New(s.store, s.client, cfg)
}

func (s *SynchronizeSuite) key() trackermodels.Key {
	return trackermodels.Key{
		BusinessID:  s.biz.ID,
		Service:     trackermodels.ServiceBNHub,
		RequestType: trackermodels.RequestChangeStatus,
		FilingID:    s.filing.ID,
	}
}

func (s *SynchronizeSuite) sync(svc *Service) error {
	return svc.Synchronize(context.Background(), s.biz, s.filing, trackermodels.ServiceBNHub, trackermodels.RequestChangeStatus, s.build)
}

func ack() *bnhub.Response {
	return &bnhub.Response{StatusCode: 200, Root: bnhub.AcknowledgementRoot, Body: []byte(`<SBNAcknowledgement/>`)}
}

func rejected() *bnhub.Response {
	return &bnhub.Response{StatusCode: 200, Root: "SBNErrorMessage", Body: []byte(`<SBNErrorMessage/>`)}
}

func (s *SynchronizeSuite) TestAcknowledgedFirstAttempt() {
	s.client.EXPECT().Send(gomock.Any(), gomock.Any()).Return(ack(), nil).Times(1)

	s.Require().NoError(s.sync(s.service(Config{MaxRetry: 3})))

	row, err := s.store.Find(context.Background(), s.key())
	s.Require().NoError(err)
	s.True(row.IsProcessed)
	s.Equal(0, row.RetryNumber)
	s.Contains(row.RequestObject, "<transactionID>1234-0</transactionID>")
	s.Contains(row.ResponseObject, "SBNAcknowledgement")

	s.Run("redelivery does not call again", func() {
		s.Require().NoError(s.sync(s.service(Config{MaxRetry: 3})))
	})
}

func (s *SynchronizeSuite) TestFourAttemptsThenRetriesExceeded() {
	svc := s.service(Config{MaxRetry: 3})
	var transactions []string
	s.client.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *bnhub.Request) (*bnhub.Response, error) {
			transactions = append(transactions, string(req.Body))
			return rejected(), nil
		}).Times(4)

	for attempt := 0; attempt < 3; attempt++ {
		err := s.sync(svc)
		s.Require().Error(err)
		s.True(dErrors.IsRetryable(err), "attempt %d should be retryable", attempt)
	}
	err := s.sync(svc)
	s.Require().Error(err)
	s.True(dErrors.HasKind(err, dErrors.KindRetriesExceeded))

	row, err := s.store.Find(context.Background(), s.key())
	s.Require().NoError(err)
	s.Equal(3, row.RetryNumber)
	s.False(row.IsProcessed)
	s.Len(transactions, 4)
	s.Contains(transactions[3], "<transactionID>1234-3</transactionID>")

	s.Run("exhausted row is not sent again", func() {
		err := s.sync(svc)
		s.True(dErrors.HasKind(err, dErrors.KindRetriesExceeded))
		row, _ := s.store.Find(context.Background(), s.key())
		s.Equal(3, row.RetryNumber)
	})
}

func (s *SynchronizeSuite) TestDissolutionAcknowledgedOnFourthAttempt() {
	svc := s.service(Config{MaxRetry: DefaultMaxRetry})
	gomock.InOrder(
		s.client.EXPECT().Send(gomock.Any(), gomock.Any()).Return(rejected(), nil).Times(3),
		s.client.EXPECT().Send(gomock.Any(), gomock.Any()).Return(ack(), nil).Times(1),
	)

	for attempt := 0; attempt < 3; attempt++ {
		s.True(dErrors.IsRetryable(s.sync(svc)))
	}
	s.Require().NoError(s.sync(svc))

	row, err := s.store.Find(context.Background(), s.key())
	s.Require().NoError(err)
	s.True(row.IsProcessed)
	s.Equal(3, row.RetryNumber)
}

func (s *SynchronizeSuite) TestAcknowledgedOnRetry() {
	svc := s.service(Config{MaxRetry: 3})
	gomock.InOrder(
		s.client.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil, dErrors.Wrap(errors.New("timeout"), dErrors.KindRetryable, "send")),
		s.client.EXPECT().Send(gomock.Any(), gomock.Any()).Return(ack(), nil),
	)

	err := s.sync(svc)
	s.True(dErrors.IsRetryable(err))
	row, _ := s.store.Find(context.Background(), s.key())
	s.Contains(row.ResponseObject, "timeout")

	s.Require().NoError(s.sync(svc))
	row, _ = s.store.Find(context.Background(), s.key())
	s.True(row.IsProcessed)
	s.Equal(1, row.RetryNumber)
}

func (s *SynchronizeSuite) TestMissingTaxIDIsRecordedWithoutCall() {
	s.biz.TaxID = ""
	s.client.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)

	s.Require().NoError(s.sync(s.service(Config{MaxRetry: 3})))

	row, err := s.store.Find(context.Background(), s.key())
	s.Require().NoError(err)
	s.True(row.IsProcessed)
	s.Contains(row.ResponseObject, "no tax id")
	s.Empty(row.RequestObject)
}

func (s *SynchronizeSuite) TestSkipExternalRequest() {
	s.client.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)

	s.Require().NoError(s.sync(s.service(Config{MaxRetry: 3, SkipExternalRequest: true})))

	row, err := s.store.Find(context.Background(), s.key())
	s.Require().NoError(err)
	s.True(row.IsProcessed)
	s.Equal(skippedNote, row.ResponseObject)
	s.Contains(row.RequestObject, "SBNChangeStatus")
}

func (s *SynchronizeSuite) TestStoreFailureIsRetryable() {
	mockStore := mocks.NewMockStore(s.ctrl)
	mockStore.EXPECT().Claim(gomock.Any(), s.key(), 3).Return(nil, trackermodels.ClaimResult(""), errors.New("connection refused"))
	s.client.EXPECT().Send(gomock.Any(), gomock.Any()).Times(0)

	svc := New(mockStore, s.client, Config{MaxRetry: 3})
	err := s.sync(svc)
	s.True(dErrors.IsRetryable(err))
}

func (s *SynchronizeSuite) TestUnpersistedBusinessIsFatal() {
	s.biz.ID = 0
	err := s.sync(s.service(Config{}))
	s.True(dErrors.HasKind(err, dErrors.KindFatal))
}

func (s *SynchronizeSuite) TestDefaultMaxRetry() {
	svc := s.service(Config{})
	s.Equal(DefaultMaxRetry, svc.cfg.MaxRetry)
}
