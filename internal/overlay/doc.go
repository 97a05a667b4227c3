// Package overlay draws on top of images: semi-transparent text and image
// watermarks, and rectangle highlights that let the agent preview a region
// before repairing it.
//
// All functions return a new grid and leave their input untouched.
package overlay
