// Package assembly turns the completed assets of a run into a render plan
// and ships it to the external video assembly service, which multiplexes the
// images and narration into an MP4.
package assembly
