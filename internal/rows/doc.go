// Package rows derives availability rows from resources and keeps a consumer's
// view of those rows in sync.
//
// A Collection is driven from two directions. A bulk loader pages through the
// resource catalogue and calls Register with notify=false, handing the returned
// rows to the consumer itself. A live feed calls Register with notify=true for
// updated resources and Remove for deleted ones, and the Collection pushes the
// resulting add/update/remove operations to its Updater.
//
// The two paths need no coordination beyond the Collection's lock: Register only
// accepts a resource state whose LastModified is strictly newer than the one it
// already holds. A live update that overtakes the bulk loader therefore wins, and
// the loader's later call for the same resource returns no rows.
//
// Row values follow a fixed policy. A range that starts at the dawn of time uses
// MinTime and one that never ends uses MaxTime; nil start, end and boundary are
// reserved for the row stating that a resource is fully available.
package rows
