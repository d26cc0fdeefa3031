// Package catalog holds the immutable device inventory the dialogue resolves
// names against.
//
// A Catalog is built in one step from an Inventory (devices, areas, floors)
// and never modified afterwards. Areas are derived from the area ids devices
// reference and floors from the floor ids those areas reference, so the
// hierarchy only contains places that hold at least one device.
//
// Every name is lowercased and indexed per tier in a NameIndex. When two
// entries of the same tier share a name the first registration wins and the
// clash is reported through Collisions.
//
// A Store publishes the current Catalog through an atomic pointer so readers
// never block while a Source is reloaded.
package catalog
