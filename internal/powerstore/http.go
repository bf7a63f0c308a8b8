package powerstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/pstracker/backend/internal/errs"
)

type HTTPClient struct {
	BaseURL string
	Token   string
	Timeout time.Duration

	once   sync.Once
	client *http.Client
}

// httpClient builds the underlying client exactly once. The same
// HTTPClient is shared between request handlers and the scheduler, so
// initialization must not mutate fields on every call.
func (c *HTTPClient) httpClient() *http.Client {
	c.once.Do(func() {
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		c.client = &http.Client{Timeout: timeout}
	})
	return c.client
}

type speditoResponse struct {
	Spedito []speditoItem `json:"Spedito"`
}

type speditoItem struct {
	NOrdine        string          `json:"nOrdine"`
	NLista         int64           `json:"nLista"`
	CodiceArticolo string          `json:"CodiceArticolo"`
	Quantita       decimal.Decimal `json:"Quantita"`
	Sovracollo     string          `json:"Sovracollo"`
	Vettore        string          `json:"Vettore"`
	DataOra        string          `json:"DataOra"`
}

type prelievoItem struct {
	Listone        int64           `json:"Listone"`
	Carrello       string          `json:"Carrello"`
	UDC            string          `json:"UDC"`
	CodiceArticolo string          `json:"CodiceArticolo"`
	Quantita       decimal.Decimal `json:"Quantita"`
	Utente         string          `json:"Utente"`
	DataPrelievo   string          `json:"DataPrelievo"`
}

func (c *HTTPClient) GetShipped(ctx context.Context, cesta string) ([]ShippedRow, error) {
	q := url.Values{}
	q.Set("Barcode", "")
	q.Set("Cesta", cesta)

	var resp speditoResponse
	if err := c.getJSON(ctx, "/Orders/GetSpedito2", q, &resp); err != nil {
		return nil, err
	}

	out := make([]ShippedRow, 0, len(resp.Spedito))
	for _, it := range resp.Spedito {
		if it.CodiceArticolo == "" {
			return nil, errs.External(nil, "GetSpedito2 returned a row without an article code")
		}
		out = append(out, ShippedRow{
			NOrdine:    it.NOrdine,
			NLista:     it.NLista,
			SKU:        it.CodiceArticolo,
			Qty:        it.Quantita,
			Sovracollo: it.Sovracollo,
			Vettore:    it.Vettore,
			ShippedAt:  parseAPITime(it.DataOra),
		})
	}
	return out, nil
}

func (c *HTTPClient) GetPicks(ctx context.Context, start, end time.Time) ([]PickRow, error) {
	q := url.Values{}
	q.Set("Inizio", start.Format("2006-01-02"))
	q.Set("Fine", end.Format("2006-01-02"))

	var items []prelievoItem
	if err := c.getJSON(ctx, "/Utility/PrelievoPowerSort", q, &items); err != nil {
		return nil, err
	}

	out := make([]PickRow, 0, len(items))
	for _, it := range items {
		out = append(out, PickRow{
			Listone:  it.Listone,
			Carrello: it.Carrello,
			UDC:      it.UDC,
			SKU:      it.CodiceArticolo,
			Qty:      it.Quantita,
			Operator: it.Utente,
			PickedAt: parseAPITime(it.DataPrelievo),
		})
	}
	return out, nil
}

// getJSON performs an authenticated GET with one retry on transient
// failures. Client errors (4xx) are never retried.
func (c *HTTPClient) getJSON(ctx context.Context, path string, query url.Values, dst any) error {
	client := c.httpClient()

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?"+query.Encode(), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(fmt.Errorf("powerstore %s: %s", path, resp.Status))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("powerstore %s: %s", path, resp.Status)
		}
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			return backoff.Permanent(fmt.Errorf("powerstore %s: malformed payload: %w", path, err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return errs.External(err, "shipment API unavailable")
	}
	return nil
}
