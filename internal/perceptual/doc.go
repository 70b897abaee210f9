// Package perceptual finds near-duplicate images and videos. Images are
// reduced to a single perceptual hash; videos to a three-hash tuple
// sampled at fixed relative positions. Files whose summed Hamming
// distance stays within the configured threshold are clustered with a
// greedy single-link sweep.
package perceptual
