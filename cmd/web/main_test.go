package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/net/publicsuffix"

	"finitefield.org/storefront/internal/catalog"
	"finitefield.org/storefront/internal/config"
	"finitefield.org/storefront/internal/order"
)

const (
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	mobileUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148"
)

type recordingNotifier struct {
	mu   sync.Mutex
	subs []order.Submission
}

func (n *recordingNotifier) Notify(_ context.Context, sub order.Submission) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, sub)
	return nil
}

func (n *recordingNotifier) submissions() []order.Submission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]order.Submission(nil), n.subs...)
}

type testEnv struct {
	handler  http.Handler
	app      *app
	notifier *recordingNotifier
	logs     *observer.ObservedLogs
}

func loadTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load("../../data/catalog.yaml")
	require.NoError(t, err)
	return cat
}

// newTestEnv builds the app the way main() does, with templates reparsed per request.
func newTestEnv(t *testing.T, cat *catalog.Catalog) *testEnv {
	t.Helper()
	devMode = true
	templatesDir = "../../templates"
	publicDir = "../../public"
	if _, err := parseTemplates(); err != nil {
		t.Fatalf("parseTemplates failed: %v", err)
	}

	cfg, err := config.Load(
		config.WithoutSystemEnv(),
		config.WithEnvFile(""),
		config.WithEnvMap(map[string]string{"STOREFRONT_DEV": "true"}),
	)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	notifier := &recordingNotifier{}
	a := newApp(cfg, cat, zap.New(core), notifier)
	return &testEnv{handler: newRouter(a), app: a, notifier: notifier, logs: logs}
}

// browser keeps cookies across requests like a real client.
type browser struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	csrf   string
}

func newBrowser(t *testing.T, h http.Handler) *browser {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	require.NoError(t, err)
	b := &browser{
		t:   t,
		srv: srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	resp := b.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b.csrf = b.cookie("csrf_token")
	require.NotEmpty(t, b.csrf, "missing csrf_token cookie from GET /")
	return b
}

func (b *browser) cookie(name string) string {
	u, err := url.Parse(b.srv.URL)
	require.NoError(b.t, err)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (b *browser) setCookie(name, value string) {
	u, err := url.Parse(b.srv.URL)
	require.NoError(b.t, err)
	b.client.Jar.SetCookies(u, []*http.Cookie{{Name: name, Value: value, Path: "/"}})
}

func (b *browser) do(method, path string, form url.Values, header http.Header) *http.Response {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, b.srv.URL+path, body)
	require.NoError(b.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("User-Agent", desktopUA)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	b.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (b *browser) get(path string) *http.Response {
	return b.do(http.MethodGet, path, nil, nil)
}

// post submits a plain form the way a browser without JavaScript would.
func (b *browser) post(path string, form url.Values) *http.Response {
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf_token", b.csrf)
	return b.do(http.MethodPost, path, form, nil)
}

// htmx posts like the htmx client: HX-Request and the CSRF header.
func (b *browser) htmx(path string, form url.Values) *http.Response {
	return b.htmxAs(path, form, desktopUA)
}

func (b *browser) htmxAs(path string, form url.Values, ua string) *http.Response {
	if form == nil {
		form = url.Values{}
	}
	h := http.Header{}
	h.Set("HX-Request", "true")
	h.Set("X-CSRF-Token", b.csrf)
	h.Set("User-Agent", ua)
	return b.do(http.MethodPost, path, form, h)
}

func parseDoc(t *testing.T, resp *http.Response) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

func triggers(t *testing.T, resp *http.Response) map[string]map[string]any {
	t.Helper()
	raw := resp.Header.Get("HX-Trigger")
	require.NotEmpty(t, raw, "expected HX-Trigger header")
	var out map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

func cartLines(doc *goquery.Document) []string {
	var lines []string
	doc.Find("#cart-items li").Each(func(_ int, s *goquery.Selection) {
		lines = append(lines, strings.TrimSpace(s.Text()))
	})
	return lines
}

func total(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("#total-price").Text())
}

func TestHealthzOK(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d; body=%s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "ok" {
		t.Fatalf("expected body 'ok', got %q", got)
	}
}

func TestAssetsServed(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	req := httptest.NewRequest(http.MethodGet, "/assets/app.css", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/css") {
		t.Fatalf("expected text/css, got %q", ct)
	}
}

func TestShopPageRendersCatalog(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	b := newBrowser(t, env.handler)

	resp := b.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseDoc(t, resp)

	products := doc.Find("#products-list .product")
	require.Equal(t, 5, products.Length())
	require.Equal(t, "Tomate - kg", strings.TrimSpace(products.First().Find("h3").Text()))
	require.Equal(t, "R$ 8.90", strings.TrimSpace(products.First().Find("p").Text()))
	action, _ := products.First().Find("form").Attr("hx-post")
	require.Equal(t, "/cart/items/1", action)

	require.Equal(t, "fresquinhos", doc.Find(".shop-description strong").Text())
	require.Empty(t, cartLines(doc))
	require.Equal(t, "0.00", total(doc))
	require.Equal(t, 1, doc.Find("#cookie-banner").Length())
	require.Equal(t, 1, doc.Find("#fazer-pedido").Length())

	jsonLD := doc.Find(`script[type="application/ld+json"]`)
	require.Equal(t, 2, jsonLD.Length())
	require.Contains(t, jsonLD.First().Text(), `"@type":"Store"`)
	require.Contains(t, jsonLD.Last().Text(), `"priceCurrency":"BRL"`)

	token, _ := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	require.Equal(t, b.csrf, token)
}

func TestCartAddAndClear(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	b := newBrowser(t, env.handler)

	require.Equal(t, http.StatusOK, b.htmx("/cart/items/1", nil).StatusCode)
	resp := b.htmx("/cart/items/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(2), triggers(t, resp)["cart:updated"]["count"])

	doc := parseDoc(t, resp)
	require.Equal(t, []string{"Tomate - kg - 2 - R$ 17.80"}, cartLines(doc))
	require.Equal(t, "17.80", total(doc))
	require.NotEmpty(t, b.cookie("cart"))

	// unknown products leave the cart untouched
	resp = b.htmx("/cart/items/999", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, []string{"Tomate - kg - 2 - R$ 17.80"}, cartLines(parseDoc(t, resp)))

	resp = b.htmx("/cart/items/3", nil)
	doc = parseDoc(t, resp)
	require.Equal(t, []string{
		"Tomate - kg - 2 - R$ 17.80",
		"Alface crespa - unidade - 1 - R$ 3.00",
	}, cartLines(doc))
	require.Equal(t, "20.80", total(doc))

	// a reload restores the same cart from the cookie
	doc = parseDoc(t, b.get("/"))
	require.Len(t, cartLines(doc), 2)
	require.Equal(t, "20.80", total(doc))

	resp = b.htmx("/cart/clear", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = parseDoc(t, resp)
	require.Empty(t, cartLines(doc))
	require.Equal(t, "0.00", total(doc))
	require.Empty(t, b.cookie("cart"))
}

func TestCartRestoresCookieAndAdds(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
shop: {name: Teste, phone: "5511999999999"}
products:
  - {id: 1, name: X, unid: kg, price: 10.00, img: /x.jpg}
`))
	require.NoError(t, err)
	env := newTestEnv(t, cat)
	b := newBrowser(t, env.handler)
	b.setCookie("cart", url.QueryEscape(`[{"id":1,"name":"X","unid":"kg","price":10.00,"quantity":2}]`))

	doc := parseDoc(t, b.get("/cart"))
	require.Equal(t, "20.00", total(doc))

	doc = parseDoc(t, b.htmx("/cart/items/1", nil))
	require.Equal(t, []string{"X - kg - 3 - R$ 30.00"}, cartLines(doc))
	require.Equal(t, "30.00", total(doc))
}

func TestCartAddWithoutHTMXRedirects(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	b := newBrowser(t, env.handler)

	resp := b.post("/cart/items/2", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
	require.NotEmpty(t, b.cookie("cart"))

	resp = b.htmx("/cart/items/abc", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostsRequireCSRF(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	b := newBrowser(t, env.handler)

	h := http.Header{}
	h.Set("HX-Request", "true")
	resp := b.do(http.MethodPost, "/cart/items/1", url.Values{}, h)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Empty(t, b.cookie("cart"))
}

func TestConsentAcceptHidesBanner(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	b := newBrowser(t, env.handler)

	resp := b.htmx("/consent/accept", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "accepted", triggers(t, resp)["consent:accepted"]["state"])
	require.NotEmpty(t, b.cookie("cookieConsent"))

	doc := parseDoc(t, b.get("/"))
	require.Equal(t, 0, doc.Find("#cookie-banner").Length())
}

func TestConsentDeclineIsNotRemembered(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	b := newBrowser(t, env.handler)

	require.Equal(t, http.StatusOK, b.htmx("/consent/decline", nil).StatusCode)
	require.Empty(t, b.cookie("cookieConsent"))

	doc := parseDoc(t, b.get("/"))
	require.Equal(t, 1, doc.Find("#cookie-banner").Length())

	// without JavaScript the post redirects to a page rendered without the banner
	resp := b.post("/consent/decline", nil)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc := resp.Header.Get("Location")
	require.Equal(t, "/?consent=declined", loc)
	require.Equal(t, 0, parseDoc(t, b.get(loc)).Find("#cookie-banner").Length())
	require.Empty(t, b.cookie("cookieConsent"))
	require.Equal(t, 1, parseDoc(t, b.get("/")).Find("#cookie-banner").Length())
}

func TestOrderOpenBlockedWhenCartEmpty(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	b := newBrowser(t, env.handler)

	resp := b.htmx("/order/open", url.Values{"state": {"closed"}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "none", resp.Header.Get("HX-Reswap"))
	require.Contains(t, resp.Header.Get("HX-Trigger"), `\u00e1`, "non-ASCII must be escaped in headers")
	require.Equal(t, alertEmptyCart, triggers(t, resp)["storefront:alert"]["message"])

	resp = b.post("/order/open", url.Values{"state": {"closed"}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	doc := parseDoc(t, resp)
	require.Equal(t, alertEmptyCart, strings.TrimSpace(doc.Find(".alert").Text()))
	require.Equal(t, 0, doc.Find("#confirmacao-pedido").Length())
}

func TestOrderFlowDesktop(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	b := newBrowser(t, env.handler)
	b.htmx("/cart/items/1", nil)
	b.htmx("/cart/items/1", nil)
	b.htmx("/cart/items/3", nil)

	resp := b.htmx("/order/open", url.Values{"state": {"closed"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseDoc(t, resp)
	require.Equal(t, "confirming", doc.Find("#order").AttrOr("data-state", ""))
	summary := doc.Find("#confirmacao-pedido .order-summary").Text()
	require.Contains(t, summary, "Seu carrinho contém:")
	require.Contains(t, summary, "2 kg Tomate - R$ 17.80")
	require.Contains(t, summary, "1 unidade Alface crespa - R$ 3.00")
	require.Contains(t, summary, "Deseja finalizar o pedido?")

	resp = b.htmx("/order/confirm", url.Values{"state": {"confirming"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc = parseDoc(t, resp)
	require.Equal(t, 1, doc.Find("#pedido-modal").Length())
	require.Equal(t, 3, doc.Find("#pagamento option").Length())
	require.Equal(t, "Pix", doc.Find("#pagamento option[selected]").Text())

	resp = b.htmx("/order/submit", url.Values{"state": {"open"}, "nome": {"  "}, "endereco": {"Rua A"}, "pagamento": {"Pix"}})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, alertMissingFields, triggers(t, resp)["storefront:alert"]["message"])
	doc = parseDoc(t, resp)
	require.Equal(t, "true", doc.Find("#nome").AttrOr("aria-invalid", ""))
	require.Equal(t, "Rua A", doc.Find("#endereco").AttrOr("value", ""))
	require.Empty(t, env.notifier.submissions())

	resp = b.htmx("/order/submit", url.Values{
		"state":     {"open"},
		"nome":      {"Ana <b>Souza</b>"},
		"endereco":  {"Rua das Flores, 10"},
		"pagamento": {"Dinheiro"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	open := triggers(t, resp)["order:open"]
	primary, _ := open["url"].(string)
	fallback, _ := open["fallback"].(string)
	require.True(t, strings.HasPrefix(primary, "https://web.whatsapp.com/send?phone=5500900000000&text="), primary)
	require.True(t, strings.HasPrefix(fallback, "https://wa.me/5500900000000?text="), fallback)
	require.NotContains(t, primary, "+")

	u, err := url.Parse(primary)
	require.NoError(t, err)
	msg := u.Query().Get("text")
	require.Contains(t, msg, "👤 *Nome:* Ana Souza\n")
	require.Contains(t, msg, "🏠 *Endereço:* Rua das Flores, 10\n")
	require.Contains(t, msg, "💳 *Forma de Pagamento:* Dinheiro\n")
	require.Contains(t, msg, "🛒 *Itens:* \n- 2 kg Tomate - R$ 17.80\n- 1 unidade Alface crespa - R$ 3.00\n")
	require.Contains(t, msg, "💰 *Total:* R$ 20.80")

	doc = parseDoc(t, resp)
	require.Equal(t, primary, doc.Find("#pedido-enviado .order-link").AttrOr("href", ""))
	require.Equal(t, fallback, doc.Find("#pedido-enviado .order-link-fallback").AttrOr("href", ""))
	require.Equal(t, 0, doc.Find("#pedido-modal").Length())

	subs := env.notifier.submissions()
	require.Len(t, subs, 1)
	require.Len(t, subs[0].Reference, 26)
	require.Equal(t, int64(2080), subs[0].Total)
	require.NotEmpty(t, b.cookie("cart"), "submitting does not clear the cart")
}

func TestOrderSubmitMobileLink(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	b := newBrowser(t, env.handler)
	b.htmx("/cart/items/5", nil)

	resp := b.htmxAs("/order/submit", url.Values{
		"state":    {"open"},
		"nome":     {"Ana"},
		"endereco": {"Rua 1"},
	}, mobileUA)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	primary, _ := triggers(t, resp)["order:open"]["url"].(string)
	require.True(t, strings.HasPrefix(primary, "https://api.whatsapp.com/send/?phone=5500900000000&text="), primary)
	require.True(t, strings.HasSuffix(primary, "&type=phone_number&app_absent=0"), primary)

	// unknown payment methods fall back to the first one offered
	u, err := url.Parse(primary)
	require.NoError(t, err)
	require.Contains(t, u.Query().Get("text"), "💳 *Forma de Pagamento:* Pix\n")
}

func TestOrderSubmitWithoutHTMXRedirects(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	b := newBrowser(t, env.handler)
	b.post("/cart/items/4", nil)

	resp := b.post("/order/submit", url.Values{"state": {"open"}, "nome": {"Ana"}, "endereco": {"Rua 1"}, "pagamento": {"Pix"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Location"), "https://web.whatsapp.com/send?phone=5500900000000"))
}

func TestOrderInvalidTransition(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	b := newBrowser(t, env.handler)
	b.htmx("/cart/items/1", nil)

	resp := b.htmx("/order/confirm", url.Values{"state": {"closed"}})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = b.htmx("/order/dismiss", url.Values{"state": {"open"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := parseDoc(t, resp)
	require.Equal(t, "closed", doc.Find("#order").AttrOr("data-state", ""))
	require.Equal(t, 0, doc.Find(".modal").Length())
}

func TestOrderDisabledWithoutPhone(t *testing.T) {
	cat := loadTestCatalog(t)
	cat.Shop.Phone = ""
	env := newTestEnv(t, cat)
	require.Nil(t, env.app.orders)
	require.Equal(t, 1, env.logs.FilterMessageSnippet("order flow disabled").Len())

	b := newBrowser(t, env.handler)
	doc := parseDoc(t, b.get("/"))
	require.Equal(t, 0, doc.Find("#fazer-pedido").Length())
	require.Equal(t, 5, doc.Find("#products-list .product").Length())

	b.htmx("/cart/items/1", nil)
	resp := b.htmx("/order/open", url.Values{"state": {"closed"}})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestsAreLogged(t *testing.T) {
	env := newTestEnv(t, loadTestCatalog(t))
	b := newBrowser(t, env.handler)
	b.htmx("/cart/items/1", nil)

	require.NotZero(t, env.logs.FilterMessage("request").Len())
	added := env.logs.FilterMessage("cart item added").All()
	require.Len(t, added, 1)
	require.Equal(t, "cart", added[0].LoggerName)
}
