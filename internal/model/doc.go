// Package model defines the cube, subcube and vertex records shared by the
// scene runtime and the persistent store, plus the geometry that lays a
// subcube grid out inside its cube.
package model
