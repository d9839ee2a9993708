// Package howfar ties the container and filesystem readers to the HowFar
// device: the table of measurement record versions, the Database facade over
// a UF2 dump of the measurement flash, and the Settings blob uploaded to
// configure a device.
package howfar
