package wikiapi

import (
	"context"

	"github.com/dtnitsch/wiki-harvester/models"
)

// PropertyLister lists pages carrying a page property.
type PropertyLister struct {
	Client   *Client
	Property string
}

func (l PropertyLister) List(ctx context.Context, cursor string) (*Listing, error) {
	return l.Client.ListPagesWithProperty(ctx, l.Property, cursor)
}

// CategoryLister lists the members of a category.
type CategoryLister struct {
	Client   *Client
	Category string
}

func (l CategoryLister) List(ctx context.Context, cursor string) (*Listing, error) {
	return l.Client.ListCategoryMembers(ctx, l.Category, cursor)
}

// StaticLister returns a fixed set of pages in a single listing, without
// touching the network. Entries are placed in namespace 0.
type StaticLister struct {
	Stubs []models.PageStub
}

func (l StaticLister) List(_ context.Context, _ string) (*Listing, error) {
	pages := make([]PageEntry, len(l.Stubs))
	for i, s := range l.Stubs {
		pages[i] = PageEntry{PageID: s.PageID, Title: s.Title}
	}
	return &Listing{Pages: pages}, nil
}
