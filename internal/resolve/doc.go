// Package resolve matches constraint sets against a catalog snapshot.
//
// Match is a pure function of a *catalog.Catalog and a Constraints value: it
// holds no state, takes no locks and always returns freshly allocated sets,
// so it is safe to call from any number of conversations at once.
package resolve
