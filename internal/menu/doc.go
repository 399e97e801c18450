// Package menu models the dynamic parameter menus driven by tracking
// records. A menu owns an ordered (key, label) entry list bound to one node
// parameter plus an override toggle that freezes its value against cascading
// updates from upstream menus.
package menu
