// internal/browser/stealth/stealth.go
package stealth

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/nullbytefox/posterhound/internal/browser/fingerprint"
)

// Patch is one targeted environment modification. Patches are independent of
// each other and are concatenated in order into the injection script.
type Patch struct {
	// Name identifies the capability being patched (e.g. "webdriver").
	Name string
	// Script renders the JavaScript fragment for the given profile.
	Script func(p fingerprint.Profile) string
}

// Patches is the ordered list of evasions applied to every new browsing
// context. The order is stable so the composed script is deterministic for a
// given profile.
var Patches = []Patch{
	{Name: "webdriver", Script: patchWebdriver},
	{Name: "plugins", Script: patchPlugins},
	{Name: "languages", Script: patchLanguages},
	{Name: "permissions", Script: patchPermissions},
	{Name: "chrome_runtime", Script: patchChromeRuntime},
	{Name: "hardware", Script: patchHardware},
	{Name: "canvas", Script: patchCanvas},
	{Name: "webgl", Script: patchWebGL},
	{Name: "battery", Script: patchBattery},
	{Name: "network_info", Script: patchNetworkInfo},
}

// BuildInjectionScript composes the full evasion script for a profile. The
// script is idempotent: a guard flag makes re-execution on the same document a
// no-op, so same-session reloads stay consistent.
func BuildInjectionScript(p fingerprint.Profile) string {
	var b strings.Builder
	b.WriteString("(() => {\n'use strict';\n")
	b.WriteString("if (window.__ph_patched) { return; }\n")
	b.WriteString("window.__ph_patched = true;\n")
	for _, patch := range Patches {
		b.WriteString("try {\n")
		b.WriteString(patch.Script(p))
		b.WriteString("\n} catch (e) {}\n")
	}
	b.WriteString("})();\n")
	return b.String()
}

// Apply builds the CDP action sequence that imprints the fingerprint profile
// onto a fresh browsing context: user agent, injection script, timezone,
// locale, geolocation, viewport, and the matching HTTP header set. The
// injection script registers via AddScriptToEvaluateOnNewDocument, so it runs
// before any site script on every navigation, including reloads.
func Apply(p fingerprint.Profile, logger *zap.Logger) chromedp.Tasks {
	if logger != nil {
		logger.Debug("Applying stealth fingerprint",
			zap.String("userAgent", p.UserAgent),
			zap.String("platform", p.Platform),
			zap.String("timezone", p.Timezone),
		)
	}

	script := BuildInjectionScript(p)

	headers := network.Headers{}
	for _, h := range p.Headers {
		// The transport supplies its own UA from the emulation override.
		if h.Name == "User-Agent" {
			continue
		}
		headers[h.Name] = h.Value
	}

	return chromedp.Tasks{
		emulation.SetUserAgentOverride(p.UserAgent).
			WithPlatform(p.Platform).
			WithAcceptLanguage(p.AcceptLanguage()),

		// The injection must register before any navigation so site scripts
		// never observe the unpatched environment.
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
			if err != nil {
				return fmt.Errorf("failed to inject evasions script: %w", err)
			}
			return nil
		}),

		emulation.SetTimezoneOverride(p.Timezone),
		emulation.SetLocaleOverride().WithLocale(p.Locale),
		emulation.SetGeolocationOverride().
			WithLatitude(p.Geolocation.Latitude).
			WithLongitude(p.Geolocation.Longitude).
			WithAccuracy(100),
		emulation.SetDeviceMetricsOverride(
			int64(p.Viewport.Width), int64(p.Viewport.Height), 1.0, false),

		// Headers require the network domain; enabling twice is harmless.
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
	}
}

func patchWebdriver(fingerprint.Profile) string {
	return `Object.defineProperty(navigator, 'webdriver', { get: () => undefined, configurable: true });
delete navigator.__proto__.webdriver;`
}

// patchPlugins replaces the (usually empty) headless plugin list with the
// static set a stock Chrome install reports.
func patchPlugins(fingerprint.Profile) string {
	return `Object.defineProperty(navigator, 'plugins', {
    get: () => {
        const mk = (name, filename, description, length) => ({
            name, filename, description, length,
            item: () => null,
            namedItem: () => null,
            [Symbol.iterator]: function* () {}
        });
        const plugins = [
            mk('Chrome PDF Plugin', 'internal-pdf-viewer', 'Portable Document Format', 1),
            mk('Chrome PDF Viewer', 'mhjfbmdgcfjbbpaeojofohoefgiehjai', '', 1),
            mk('Native Client', 'internal-nacl-plugin', '', 2)
        ];
        plugins.item = (i) => plugins[i] || null;
        plugins.namedItem = (n) => plugins.find(p => p.name === n) || null;
        plugins.refresh = () => {};
        return plugins;
    },
    configurable: true
});`
}

func patchLanguages(fingerprint.Profile) string {
	return `Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'], configurable: true });`
}

// patchPermissions resolves notification queries from Notification.permission
// instead of the "denied" a headless profile leaks through the API.
func patchPermissions(fingerprint.Profile) string {
	return `const originalQuery = window.navigator.permissions.query.bind(window.navigator.permissions);
window.navigator.permissions.query = (parameters) => (
    parameters.name === 'notifications'
        ? Promise.resolve({ state: Notification.permission })
        : originalQuery(parameters)
);`
}

func patchChromeRuntime(fingerprint.Profile) string {
	return `window.chrome = window.chrome || {};
window.chrome.runtime = window.chrome.runtime || {};
window.chrome.loadTimes = window.chrome.loadTimes || function() {};
window.chrome.csi = window.chrome.csi || function() {};
window.chrome.app = window.chrome.app || {};`
}

func patchHardware(p fingerprint.Profile) string {
	return fmt.Sprintf(`Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => %d, configurable: true });
Object.defineProperty(navigator, 'deviceMemory', { get: () => %d, configurable: true });
Object.defineProperty(navigator, 'maxTouchPoints', { get: () => 0, configurable: true });
Object.defineProperty(navigator, 'platform', { get: () => %q, configurable: true });
Object.defineProperty(navigator, 'vendor', { get: () => %q, configurable: true });`,
		p.HardwareConcurrency, p.DeviceMemory, p.Platform, p.Vendor)
}

// patchCanvas perturbs readbacks at the probe dimensions fingerprinting
// scripts use and leaves ordinary canvases untouched.
func patchCanvas(fingerprint.Profile) string {
	return `const originalToDataURL = HTMLCanvasElement.prototype.toDataURL;
HTMLCanvasElement.prototype.toDataURL = function(type) {
    if (type === 'image/png' && this.width === 280 && this.height === 60) {
        return 'data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+M9QDwADhgGAWjR9awAAAABJRU5ErkJggg==';
    }
    return originalToDataURL.apply(this, arguments);
};
const originalGetImageData = CanvasRenderingContext2D.prototype.getImageData;
CanvasRenderingContext2D.prototype.getImageData = function(x, y, w, h) {
    const data = originalGetImageData.apply(this, arguments);
    if (w === 280 && h === 60) {
        for (let i = 0; i < data.data.length; i += 97) { data.data[i] = data.data[i] ^ 1; }
    }
    return data;
};`
}

// patchWebGL reports a common discrete-GPU vendor/renderer pair instead of
// the SwiftShader strings headless Chrome exposes. 37445/37446 are the
// UNMASKED_VENDOR_WEBGL and UNMASKED_RENDERER_WEBGL debug-extension enums.
func patchWebGL(fingerprint.Profile) string {
	return `const getParameter = WebGLRenderingContext.prototype.getParameter;
WebGLRenderingContext.prototype.getParameter = function(parameter) {
    if (parameter === 37445) { return 'NVIDIA Corporation'; }
    if (parameter === 37446) { return 'NVIDIA GeForce GTX 1660/PCIe/SSE2'; }
    return getParameter.call(this, parameter);
};`
}

func patchBattery(fingerprint.Profile) string {
	return `navigator.getBattery = () => Promise.resolve({
    charging: true,
    chargingTime: 0,
    dischargingTime: Infinity,
    level: 1,
    addEventListener: () => {},
    removeEventListener: () => {},
    dispatchEvent: () => true
});`
}

func patchNetworkInfo(fingerprint.Profile) string {
	return `if (!navigator.connection) {
    Object.defineProperty(navigator, 'connection', {
        get: () => ({ effectiveType: '4g', rtt: 50, downlink: 10, saveData: false }),
        configurable: true
    });
}`
}
