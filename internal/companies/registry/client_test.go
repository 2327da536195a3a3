package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grand-nerud/backoffice/internal/shared"
)

const legalBody = `{"items":[{"ЮЛ":{
	"ИНН":"7707083893",
	"НаимПолнЮЛ":"ПУБЛИЧНОЕ АКЦИОНЕРНОЕ ОБЩЕСТВО \"ПРИМЕР\"",
	"НаимСокрЮЛ":"ПАО \"ПРИМЕР\"",
	"Статус":"Действующее",
	"Адрес":{"АдресПолн":"г. Москва, ул. Вавилова, д. 19"},
	"Руководитель":{"ФИОПолн":"Иванов Иван Иванович"}
}}]}`

const individualBody = `{"items":[{"ИП":{
	"ИННФЛ":"500100732259",
	"ФИОПолн":"Петров Пётр Петрович",
	"Статус":"Деятельность прекращена",
	"Контакты":{"e-mail":["Petrov@Example.RU"]},
	"Адрес":{"АдресПолн":"Московская обл., г. Химки"}
}}]}`

func TestParseLegalEntity(t *testing.T) {
	company, err := Parse([]byte(legalBody), time.Now())
	require.NoError(t, err)
	assert.Equal(t, TypeLegal, company.Type)
	assert.Equal(t, "7707083893", company.INN)
	assert.Equal(t, `ПАО "ПРИМЕР"`, company.AbbreviatedName)
	assert.False(t, company.IsDeleted)
	assert.Nil(t, company.DeletedAt)
	assert.Equal(t, []Contact{
		{Kind: ContactAddress, Value: "г. Москва, ул. Вавилова, д. 19"},
		{Kind: ContactDirector, Value: "Иванов Иван Иванович"},
	}, company.Contacts)
}

func TestParseClosedIndividual(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	company, err := Parse([]byte(individualBody), now)
	require.NoError(t, err)
	assert.Equal(t, TypeIndividual, company.Type)
	assert.Equal(t, company.Name, company.AbbreviatedName)
	assert.True(t, company.IsDeleted)
	require.NotNil(t, company.DeletedAt)
	assert.Equal(t, now, *company.DeletedAt)
	require.NotEmpty(t, company.Contacts)
	assert.Equal(t, Contact{Kind: ContactEmail, Value: "petrov@example.ru"}, company.Contacts[0])
}

func TestParseEmptyItems(t *testing.T) {
	_, err := Parse([]byte(`{"items":[]}`), time.Now())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLookupQueriesRegistryOnce(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "7707083893", r.URL.Query().Get("req"))
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(legalBody))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 5*time.Second, nil)

	var wg sync.WaitGroup
	results := make([]*Company, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			company, err := client.Lookup(context.Background(), "7707083893")
			assert.NoError(t, err)
			results[i] = company
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, company := range results {
		require.NotNil(t, company)
		assert.Equal(t, "7707083893", company.INN)
	}
}

func TestLookupUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second, nil).Lookup(context.Background(), "1")
	assert.ErrorIs(t, err, shared.ErrUpstream)

	_, err = NewClient("http://127.0.0.1:0", "", time.Second, nil).Lookup(context.Background(), "1")
	assert.ErrorIs(t, err, shared.ErrUpstream)
}
