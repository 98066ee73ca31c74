// Package capture provides display enumeration and screen grabbing behind the
// Source interface, plus the image post-processing every capture goes through:
// downscaling to the 1920×1080 ceiling (Fit) and lossless PNG encoding
// (EncodePNG).
//
// ScreenSource is the production implementation on top of the platform
// screenshot API (X11, GDI, CoreGraphics). Tests inject fake Sources to drive
// the pipeline without real displays.
package capture
