// Package image2nord remaps arbitrary images onto the fixed 16-color Nord palette.
//
// Colors are compared in CIE L*a*b* (D65) so that "nearest palette entry" follows
// perceived similarity rather than raw RGB distance. An optional segmentation stage
// assigns coarse semantic classes (sky, foliage, skin, ...) to pixels and restricts
// each class to a harmonious palette subset, and an error-diffusion stage spreads
// the quantization residue to neighboring pixels to preserve gradients.
package image2nord
