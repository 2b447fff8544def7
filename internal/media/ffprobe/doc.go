// Package ffprobe runs ffprobe against a media source and decodes the JSON
// stream listing. The video renderer uses it to confirm a slide's asset
// carries a decodable video stream before the slide is reported ready.
package ffprobe
