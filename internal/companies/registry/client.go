// Package registry looks up companies in the external tax registry by inn.
package registry

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/grand-nerud/backoffice/internal/shared"
)

// Company types returned by the registry.
const (
	TypeIndividual = "individual"
	TypeLegal      = "legal"
)

// Contact kinds.
const (
	ContactEmail    = "email"
	ContactAddress  = "address"
	ContactDirector = "director"
)

// ErrCompanyNotFound is returned when the registry has no record for the inn.
var ErrCompanyNotFound = shared.NewError(shared.ErrNotFound, "company not found in registry")

// closedStatusWords mark a registry record as no longer operating.
var closedStatusWords = []string{"прекращ", "ликвидир", "не действ", "исключен"}

// Contact is one tagged company contact.
type Contact struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Company is a registry record normalised to the local company shape.
type Company struct {
	Name            string     `json:"name"`
	AbbreviatedName string     `json:"abbreviatedName"`
	INN             string     `json:"inn"`
	Contacts        []Contact  `json:"contacts"`
	Type            string     `json:"type"`
	IsDeleted       bool       `json:"is_deleted"`
	DeletedAt       *time.Time `json:"deleted_at"`
}

// Client queries the registry. Concurrent lookups of the same inn share one
// upstream request.
type Client struct {
	http   *resty.Client
	url    string
	key    string
	logger *zap.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewClient builds a registry client.
func NewClient(url, key string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		http:   resty.New().SetTimeout(timeout).SetHeader("Accept", "application/json"),
		url:    url,
		key:    key,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Lookup fetches and normalises the registry record for inn.
func (c *Client) Lookup(ctx context.Context, inn string) (*Company, error) {
	inn = strings.TrimSpace(inn)
	if inn == "" {
		return nil, shared.NewError(shared.ErrValidation, "inn must not be empty")
	}
	v, err, _ := c.group.Do(inn, func() (interface{}, error) {
		return c.fetch(context.WithoutCancel(ctx), inn)
	})
	if err != nil {
		return nil, err
	}
	company := *v.(*Company)
	return &company, nil
}

func (c *Client) fetch(ctx context.Context, inn string) (*Company, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"req": inn, "key": c.key}).
		Get(c.url)
	if err != nil {
		c.logger.Warn("registry request failed", zap.String("inn", inn), zap.Error(err))
		return nil, fmt.Errorf("%w: registry request: %v", shared.ErrUpstream, err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.logger.Warn("registry responded with error", zap.String("inn", inn), zap.Int("status", resp.StatusCode()))
		return nil, fmt.Errorf("%w: registry status %d", shared.ErrUpstream, resp.StatusCode())
	}
	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: registry returned malformed JSON", shared.ErrUpstream)
	}
	return Parse(body, c.now())
}

// Parse normalises a registry response body. now stamps deleted_at for
// closed companies.
func Parse(body []byte, now time.Time) (*Company, error) {
	item := gjson.GetBytes(body, "items.0")
	if !item.Exists() {
		return nil, ErrCompanyNotFound
	}
	var company *parsed
	switch {
	case item.Get("ИП").Exists():
		company = parseIndividual(item.Get("ИП"))
	case item.Get("ЮЛ").Exists():
		company = parseLegal(item.Get("ЮЛ"))
	default:
		return nil, ErrCompanyNotFound
	}
	if closed(company.status) {
		company.IsDeleted = true
		company.DeletedAt = &now
	}
	return &company.Company, nil
}

type parsed struct {
	Company
	status string
}

func parseIndividual(ip gjson.Result) *parsed {
	name := ip.Get("ФИОПолн").String()
	out := &parsed{
		Company: Company{Name: name, AbbreviatedName: name, INN: ip.Get("ИННФЛ").String(), Type: TypeIndividual, Contacts: []Contact{}},
		status:  ip.Get("Статус").String(),
	}
	email := ip.Get("E-mail").String()
	if email == "" {
		email = ip.Get("Контакты.e-mail.0").String()
	}
	if email != "" {
		out.Contacts = append(out.Contacts, Contact{Kind: ContactEmail, Value: strings.ToLower(email)})
	}
	if addr := ip.Get("Адрес.АдресПолн").String(); addr != "" {
		out.Contacts = append(out.Contacts, Contact{Kind: ContactAddress, Value: addr})
	}
	return out
}

func parseLegal(ul gjson.Result) *parsed {
	out := &parsed{
		Company: Company{
			Name:            ul.Get("НаимПолнЮЛ").String(),
			AbbreviatedName: ul.Get("НаимСокрЮЛ").String(),
			INN:             ul.Get("ИНН").String(),
			Type:            TypeLegal,
			Contacts:        []Contact{},
		},
		status: ul.Get("Статус").String(),
	}
	if addr := ul.Get("Адрес.АдресПолн").String(); addr != "" {
		out.Contacts = append(out.Contacts, Contact{Kind: ContactAddress, Value: addr})
	}
	if director := ul.Get("Руководитель.ФИОПолн").String(); director != "" {
		out.Contacts = append(out.Contacts, Contact{Kind: ContactDirector, Value: director})
	}
	return out
}

func closed(status string) bool {
	status = strings.ToLower(status)
	for _, word := range closedStatusWords {
		if strings.Contains(status, word) {
			return true
		}
	}
	return false
}
