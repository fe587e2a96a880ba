package render

import "fmt"

// contentSnapshotJS returns the current render state of every known SPA
// root plus the document body, in one round trip, in priority order. The
// probe loop in Go applies the readiness thresholds to its output.
const contentSnapshotJS = `(() => {
    const sels = ['#root', '#app', '#__next', '#__nuxt', '[data-reactroot]', 'main'];
    const roots = sels.map(sel => {
        const el = document.querySelector(sel);
        if (!el) {
            return {selector: sel, present: false, childCount: 0, textLength: 0, imageCount: 0};
        }
        const text = el.innerText ? el.innerText.trim() : '';
        const imgs = el.querySelectorAll('img[src]:not([src=""])');
        return {selector: sel, present: true, childCount: el.children.length,
                textLength: text.length, imageCount: imgs.length};
    });
    const bodyText = document.body ? document.body.innerText.trim() : '';
    const bodyImgs = document.querySelectorAll('img[src]:not([src=""])');
    return {roots: roots, body: {textLength: bodyText.length, imageCount: bodyImgs.length}};
})()`

// autoScrollJS scrolls by 80% of the viewport height every 200ms until it
// reaches the bottom, a 15000px cap, or a 40s budget, then resets to the
// top. Its purpose is to trigger lazy loaders.
const autoScrollJS = `(async () => {
    await new Promise((resolve) => {
        const viewportHeight = window.innerHeight;
        const distance = Math.floor(viewportHeight * 0.8);
        const maxHeight = 15000;
        const scrollTimeout = 40000;
        const startTime = Date.now();
        let totalHeight = 0;

        const timer = setInterval(() => {
            const scrollHeight = document.body.scrollHeight;
            window.scrollBy(0, distance);
            totalHeight += distance;

            if (totalHeight >= scrollHeight - viewportHeight || totalHeight >= maxHeight || Date.now() - startTime >= scrollTimeout) {
                clearInterval(timer);
                window.scrollTo(0, 0);
                resolve();
            }
        }, 200);
    });
})()`

// waitForImagesJS waits for every <img> to reach a loaded-or-errored
// state, each capped at 3s so one broken image cannot stall the pipeline.
const waitForImagesJS = `(async () => {
    const images = Array.from(document.querySelectorAll('img'));
    await Promise.all(images.map(img => {
        if (img.complete) return;
        return new Promise(resolve => {
            img.addEventListener('load', resolve);
            img.addEventListener('error', resolve);
            setTimeout(resolve, 3000);
        });
    }));
})()`

// extractImagesFn walks every <img> (and optionally every computed CSS
// background image) and returns raw records plus page context in one round
// trip.
const extractImagesFn = `(includeBackgrounds) => {
    const images = [];
    const viewportWidth = window.innerWidth;
    const viewportHeight = window.innerHeight;

    const imgElements = Array.from(document.querySelectorAll('img'));

    imgElements.forEach((img) => {
        const rect = img.getBoundingClientRect();

        let inHeader = false;
        let parentEl = img.parentElement;
        let depth = 0;
        while (parentEl && depth < 5) {
            const tagName = parentEl.tagName.toLowerCase();
            if (tagName === 'header' || tagName === 'nav') {
                inHeader = true;
                break;
            }
            parentEl = parentEl.parentElement;
            depth++;
        }

        const src = img.src || '';
        const alt = img.alt || '';
        const className = (typeof img.className === 'string') ? img.className : '';
        const containsLogo =
            src.toLowerCase().includes('logo') ||
            alt.toLowerCase().includes('logo') ||
            className.toLowerCase().includes('logo');

        const productKeywords = ['product', 'iphone', 'macbook', 'ipad', 'watch', 'airpods', 'laptop', 'phone', 'tablet'];
        const containsProductKeywords = productKeywords.some(keyword =>
            src.toLowerCase().includes(keyword) ||
            alt.toLowerCase().includes(keyword) ||
            className.toLowerCase().includes(keyword)
        );

        const isLazyLoaded =
            img.hasAttribute('data-src') ||
            img.hasAttribute('loading') ||
            img.hasAttribute('data-lazy');

        let format = 'unknown';
        if (src) {
            const ext = src.split('.').pop().split('?')[0].toLowerCase();
            if (['jpg', 'jpeg', 'png', 'gif', 'webp', 'svg', 'bmp'].includes(ext)) {
                format = ext === 'jpg' ? 'jpeg' : ext;
            }
        }

        images.push({
            src: src,
            srcset: img.srcset || null,
            alt: alt,
            width: img.naturalWidth || 0,
            height: img.naturalHeight || 0,
            format: format,
            position: {
                x: Math.round(rect.left),
                y: Math.round(rect.top),
                visible: rect.top < viewportHeight && rect.bottom > 0 && rect.left < viewportWidth && rect.right > 0
            },
            containsLogo: containsLogo,
            containsProductKeywords: containsProductKeywords,
            inHeader: inHeader,
            isLazyLoaded: isLazyLoaded,
            className: className,
            parentTag: img.parentElement ? img.parentElement.tagName.toLowerCase() : null
        });
    });

    if (includeBackgrounds) {
        const allElements = Array.from(document.querySelectorAll('*'));

        allElements.forEach(el => {
            const style = window.getComputedStyle(el);
            const bgImage = style.backgroundImage;

            if (bgImage && bgImage !== 'none' && bgImage.includes('url(')) {
                const urlMatch = bgImage.match(/url\(['"]?([^'"]+)['"]?\)/);
                if (urlMatch && urlMatch[1]) {
                    const url = urlMatch[1];
                    if (url.startsWith('data:')) return;

                    const rect = el.getBoundingClientRect();

                    images.push({
                        src: url,
                        srcset: null,
                        alt: '',
                        width: Math.round(rect.width),
                        height: Math.round(rect.height),
                        format: 'background',
                        position: {
                            x: Math.round(rect.left),
                            y: Math.round(rect.top),
                            visible: rect.top < viewportHeight && rect.bottom > 0
                        },
                        containsLogo: false,
                        containsProductKeywords: false,
                        inHeader: false,
                        isLazyLoaded: false,
                        className: (typeof el.className === 'string') ? el.className : '',
                        parentTag: 'background'
                    });
                }
            }
        });
    }

    const lazyLoadedCount = images.filter(img => img.isLazyLoaded).length;

    return {
        allImages: images,
        pageContext: {
            viewportWidth: viewportWidth,
            viewportHeight: viewportHeight,
            scrollHeight: document.body.scrollHeight
        },
        lazyLoadedCount: lazyLoadedCount
    };
}`

// extractImagesScript binds the includeBackgrounds argument into a single
// evaluable expression.
func extractImagesScript(includeBackgrounds bool) string {
	return fmt.Sprintf("(%s)(%t)", extractImagesFn, includeBackgrounds)
}
