package wikiapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dtnitsch/wiki-harvester/pkg/caching"
	"github.com/dtnitsch/wiki-harvester/pkg/fetcher"
)

// newTestClient serves handler and returns a client pointed at it.
func newTestClient(t *testing.T, handler func(q url.Values) string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("format = %q, want json", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(handler(r.URL.Query())))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api.php", fetcher.NewFetcher(fetcher.Options{}), "max")
}

func TestListPagesWithProperty(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	c := newTestClient(t, func(q url.Values) string {
		mu.Lock()
		seen = append(seen, q.Get("pwpcontinue"))
		mu.Unlock()
		if q.Get("pwppropname") != "infoboxes" {
			t.Errorf("pwppropname = %q", q.Get("pwppropname"))
		}
		if q.Get("pwpcontinue") == "1" {
			return `{"continue":{"pwpcontinue":"4242","continue":"||"},"query":{"pageswithprop":[
				{"pageid":1,"ns":0,"title":"Tatooine"},
				{"pageid":2,"ns":14,"title":"Category:Planets"}]}}`
		}
		return `{"query":{"pageswithprop":[{"pageid":3,"ns":0,"title":"Hoth"}]}}`
	})

	first, err := c.ListPagesWithProperty(context.Background(), "infoboxes", "")
	if err != nil {
		t.Fatalf("ListPagesWithProperty() error = %v", err)
	}
	if first.Done() || first.NextCursor != "4242" {
		t.Errorf("first NextCursor = %q, want 4242", first.NextCursor)
	}
	if len(first.Pages) != 2 || first.Pages[1].Namespace != 14 {
		t.Errorf("first Pages = %+v", first.Pages)
	}

	second, err := c.ListPagesWithProperty(context.Background(), "infoboxes", first.NextCursor)
	if err != nil {
		t.Fatalf("ListPagesWithProperty() error = %v", err)
	}
	if !second.Done() {
		t.Errorf("second NextCursor = %q, want empty", second.NextCursor)
	}
	mu.Lock()
	defer mu.Unlock()
	if !reflect.DeepEqual(seen, []string{"1", "4242"}) {
		t.Errorf("cursors sent = %v", seen)
	}
}

func TestListCategoryMembersOmitsInitialCursor(t *testing.T) {
	c := newTestClient(t, func(q url.Values) string {
		if q.Get("cmtitle") != "Category:Planets" {
			t.Errorf("cmtitle = %q", q.Get("cmtitle"))
		}
		if _, ok := q["cmcontinue"]; ok {
			t.Error("cmcontinue sent on first request")
		}
		return `{"continue":{"cmcontinue":"page|HOTH|3"},"query":{"categorymembers":[{"pageid":1,"ns":0,"title":"Tatooine"}]}}`
	})
	l, err := c.ListCategoryMembers(context.Background(), "Planets", InitialCursor)
	if err != nil {
		t.Fatalf("ListCategoryMembers() error = %v", err)
	}
	if l.NextCursor != "page|HOTH|3" {
		t.Errorf("NextCursor = %q", l.NextCursor)
	}
}

func TestListInfoboxTemplates(t *testing.T) {
	c := newTestClient(t, func(q url.Values) string {
		if q.Get("apnamespace") != "10" || q.Get("apprefix") != "Infobox" {
			t.Errorf("unexpected query %v", q)
		}
		return `{"query":{"allpages":[{"pageid":9,"ns":10,"title":"Template:Infobox planet"}]}}`
	})
	l, err := c.ListInfoboxTemplates(context.Background(), "")
	if err != nil {
		t.Fatalf("ListInfoboxTemplates() error = %v", err)
	}
	if len(l.Pages) != 1 || l.Pages[0].Title != "Template:Infobox planet" || !l.Done() {
		t.Errorf("ListInfoboxTemplates() = %+v", l)
	}
}

func TestGetPageSectionsAndProperties(t *testing.T) {
	c := newTestClient(t, func(q url.Values) string {
		if q.Get("prop") != "sections|properties" || q.Get("page") != "Tatooine" {
			t.Errorf("unexpected query %v", q)
		}
		return `{"parse":{"title":"Tatooine","sections":[
			{"index":"1","line":"Description"},
			{"index":2,"line":"History"},
			{"index":"","line":"Template section"}],
			"properties":[
			{"name":"infoboxes","*":"[{\"data\":[]}]"},
			{"name":"wikibase_item","*":"Q1"},
			{"name":"infoboxes","*":null}]}}`
	})
	props, err := c.GetPageSectionsAndProperties(context.Background(), "Tatooine")
	if err != nil {
		t.Fatalf("GetPageSectionsAndProperties() error = %v", err)
	}
	if len(props.Sections) != 3 || props.Sections[1].Index != "2" || props.Sections[1].Heading != "History" {
		t.Errorf("Sections = %+v", props.Sections)
	}
	if !reflect.DeepEqual(props.InfoboxPayloads, []string{`[{"data":[]}]`}) {
		t.Errorf("InfoboxPayloads = %q", props.InfoboxPayloads)
	}
}

func TestGetSectionHTMLAndCategories(t *testing.T) {
	c := newTestClient(t, func(q url.Values) string {
		switch q.Get("prop") {
		case "text":
			if q.Get("section") != "2" {
				t.Errorf("section = %q", q.Get("section"))
			}
			return `{"parse":{"text":{"*":"<p>Desert world</p>"}}}`
		case "categories":
			return `{"parse":{"categories":[{"sortkey":"","*":"Planets"},{"sortkey":"","*":"Desert_planets"}]}}`
		}
		t.Errorf("unexpected prop %q", q.Get("prop"))
		return `{}`
	})

	html, err := c.GetSectionHTML(context.Background(), "Tatooine", "2")
	if err != nil || html != "<p>Desert world</p>" {
		t.Errorf("GetSectionHTML() = %q, %v", html, err)
	}
	cats, err := c.GetPageCategories(context.Background(), "Tatooine")
	if err != nil || !reflect.DeepEqual(cats, []string{"Planets", "Desert_planets"}) {
		t.Errorf("GetPageCategories() = %v, %v", cats, err)
	}
}

func TestErrorEnvelope(t *testing.T) {
	c := newTestClient(t, func(q url.Values) string {
		return `{"error":{"code":"missingtitle","info":"The page you specified doesn't exist."}}`
	})
	_, err := c.GetPageCategories(context.Background(), "Nowhere")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "missingtitle" {
		t.Errorf("GetPageCategories() error = %v, want APIError missingtitle", err)
	}
}

func TestMissingParseObject(t *testing.T) {
	c := newTestClient(t, func(q url.Values) string { return `{"batchcomplete":""}` })
	_, err := c.GetSectionHTML(context.Background(), "Tatooine", "1")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("GetSectionHTML() error = %v, want ErrMalformedResponse", err)
	}
}

func TestStaticLister(t *testing.T) {
	l, err := StaticLister{}.List(context.Background(), InitialCursor)
	if err != nil || !l.Done() || len(l.Pages) != 0 {
		t.Errorf("StaticLister.List() = %+v, %v", l, err)
	}
}

func TestCachedClientRecoversFromErrorEnvelope(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(`{"error":{"code":"ratelimited","info":"slow down"}}`))
			return
		}
		w.Write([]byte(`{"parse":{"categories":[{"*":"Planets"}]}}`))
	}))
	t.Cleanup(srv.Close)

	cache, err := caching.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() error = %v", err)
	}
	c := NewClient(srv.URL+"/api.php", fetcher.NewFetcher(fetcher.Options{Cache: cache}), "max")

	var apiErr *APIError
	if _, err := c.GetPageCategories(context.Background(), "Tatooine"); !errors.As(err, &apiErr) || apiErr.Code != "ratelimited" {
		t.Fatalf("first GetPageCategories() error = %v, want ratelimited APIError", err)
	}
	for i := 0; i < 2; i++ {
		cats, err := c.GetPageCategories(context.Background(), "Tatooine")
		if err != nil || !reflect.DeepEqual(cats, []string{"Planets"}) {
			t.Fatalf("GetPageCategories() = %v, %v", cats, err)
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("server calls = %d, want 2", got)
	}
}
