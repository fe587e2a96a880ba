package render

import "strings"

// filterImages drops records that cannot be useful downstream: images
// below the size minimums, exact 1x1 tracking pixels, and records with an
// empty or data:-scheme source.
func filterImages(images []RawImage, minWidth, minHeight int) []RawImage {
	result := make([]RawImage, 0, len(images))
	for _, img := range images {
		if img.Width < minWidth || img.Height < minHeight {
			continue
		}
		if img.Width == 1 && img.Height == 1 {
			continue
		}
		if img.Src == "" || strings.HasPrefix(img.Src, "data:") {
			continue
		}
		result = append(result, img)
	}
	return result
}

// limitImages truncates to at most max records. It runs after filtering
// and before classification so classification cost stays bounded.
func limitImages(images []RawImage, max int) []RawImage {
	if len(images) <= max {
		return images
	}
	return images[:max]
}

// classifyImages assigns each image exactly one label by first-matching
// rule and projects it into the public shape.
func classifyImages(images []RawImage, pc PageContext) []ExtractedImage {
	result := make([]ExtractedImage, 0, len(images))
	for _, img := range images {
		result = append(result, ExtractedImage{
			Src:            img.Src,
			Srcset:         img.Srcset,
			Alt:            img.Alt,
			Width:          img.Width,
			Height:         img.Height,
			Format:         img.Format,
			Position:       img.Position,
			Classification: classify(img, pc),
			IsLazyLoaded:   img.IsLazyLoaded,
		})
	}
	return result
}

// classify applies the precedence order hero > logo > product > icon >
// thumbnail > content. The order matters: a header-width banner with a
// logo hint is still a hero.
func classify(img RawImage, pc PageContext) string {
	switch {
	case float64(img.Position.Y) < float64(pc.ViewportHeight)*0.2 &&
		float64(img.Width) > float64(pc.ViewportWidth)*0.5 &&
		img.Height > 400:
		return ClassHero
	case img.ContainsLogo && img.InHeader && img.Width < 300:
		return ClassLogo
	case img.Width >= 300 && img.Height >= 200 && img.ContainsProductKeywords:
		return ClassProduct
	case img.Width < 100 && img.Height < 100:
		return ClassIcon
	case img.Width >= 100 && img.Width < 400 && img.Height >= 100 && img.Height < 400:
		return ClassThumbnail
	default:
		return ClassContent
	}
}
