// Package pagination walks SWAPI's linked page listings.
//
// SWAPI pages carry an absolute "next" URL (or null on the last page), so
// pages can only be fetched one after another. The Walker follows those
// links until there is no next page or a fetch fails.
//
// Example usage:
//
//	walker := pagination.NewWalker(swapiClient, pagination.DefaultConfig())
//	pages, err := walker.Walk(ctx, "people/", func(page *swapi.Page) error {
//		store.Append(page)
//		return nil
//	})
package pagination
