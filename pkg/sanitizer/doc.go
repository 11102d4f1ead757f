// Package sanitizer normalizes free-text listing input (model names,
// locations, descriptions, feature tags, image URLs) before validation and
// storage. It trims, collapses whitespace, and strips control characters;
// it does not attempt HTML escaping, which is the renderer's job.
package sanitizer
