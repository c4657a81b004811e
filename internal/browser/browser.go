package browser

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/example/outreachbot/internal/config"
	"github.com/example/outreachbot/internal/logging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

type Browser struct {
	Rod *rod.Browser
	Cfg *config.Config
	log *logging.Logger
}

func New(ctx context.Context, cfg *config.Config) (*Browser, error) {
	log := logging.New(cfg.Logging.Level).With("module", "browser")
	// Disable leakless to avoid AV false positives on Windows
	l := launcher.New().Leakless(false)
	l = l.Headless(cfg.Stealth.Headless)
	url, err := l.Launch()
	if err != nil {
		return nil, err
	}
	rb := rod.New().ControlURL(url).MustConnect()
	br := &Browser{Rod: rb, Cfg: cfg, log: log}
	if err := br.init(ctx); err != nil {
		return nil, err
	}
	return br, nil
}

func (b *Browser) init(ctx context.Context) error {
	b.Rod = b.Rod.MustIgnoreCertErrors(true)

	// Default page for initial fingerprint setup
	p := b.Rod.MustPage("about:blank")

	ua := b.Cfg.Stealth.UserAgent
	if ua == "" {
		uas := []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
		}
		ua = uas[rand.Intn(len(uas))]
	}

	// Platform must be consistent with the UA
	platform := "Win32"
	if strings.Contains(ua, "Macintosh") {
		platform = "MacIntel"
	} else if strings.Contains(ua, "Linux") {
		platform = "Linux x86_64"
	}

	_ = proto.EmulationSetUserAgentOverride{
		UserAgent: ua,
		Platform:  platform,
	}.Call(p)

	w := randRange(b.Cfg.Stealth.ViewportWidthMin, b.Cfg.Stealth.ViewportWidthMax)
	h := randRange(b.Cfg.Stealth.ViewportHeightMin, b.Cfg.Stealth.ViewportHeightMax)
	_ = p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             w,
		Height:            h,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})

	_, _ = p.Eval(getStealthScript(w, h, platform))

	p.MustClose()
	b.log.Info("browser fingerprint initialized", "ua", ua, "viewport", fmt.Sprintf("%dx%d", w, h))
	return nil
}

// getStealthScript returns anti-detection JavaScript applied to every page.
func getStealthScript(width, height int, platform string) string {
	return `(width, height, platform) => {
		Object.defineProperty(navigator, 'webdriver', {
			get: () => undefined
		});

		window.chrome = {
			runtime: {},
			loadTimes: function() {},
			csi: function() {},
			app: {}
		};

		Object.defineProperty(navigator, 'plugins', {
			get: () => [
				{
					name: 'PDF Viewer',
					filename: 'internal-pdf-viewer',
					description: 'Portable Document Format'
				},
				{
					name: 'Chrome PDF Viewer',
					filename: 'internal-pdf-viewer',
					description: 'Portable Document Format'
				},
				{
					name: 'Chromium PDF Viewer',
					filename: 'internal-pdf-viewer',
					description: 'Portable Document Format'
				}
			]
		});

		Object.defineProperty(navigator, 'languages', {
			get: () => ['en-US', 'en']
		});

		const originalQuery = window.navigator.permissions.query;
		window.navigator.permissions.query = (parameters) => (
			parameters.name === 'notifications'
				? Promise.resolve({ state: Notification.permission })
				: originalQuery(parameters)
		);

		Object.defineProperty(navigator, 'hardwareConcurrency', {
			get: () => 4 + Math.floor(Math.random() * 8)
		});

		Object.defineProperty(navigator, 'deviceMemory', {
			get: () => 8
		});

		const originalToDataURL = HTMLCanvasElement.prototype.toDataURL;
		HTMLCanvasElement.prototype.toDataURL = function(type) {
			const context = this.getContext('2d');
			const imageData = context.getImageData(0, 0, this.width, this.height);

			for (let i = 0; i < imageData.data.length; i += 4) {
				if (Math.random() < 0.001) {
					imageData.data[i] = imageData.data[i] + Math.floor(Math.random() * 2) - 1;
				}
			}

			context.putImageData(imageData, 0, 0);
			return originalToDataURL.apply(this, arguments);
		};

		const getParameter = WebGLRenderingContext.prototype.getParameter;
		WebGLRenderingContext.prototype.getParameter = function(parameter) {
			if (parameter === 37445) { // UNMASKED_VENDOR_WEBGL
				return 'Intel Inc.';
			}
			if (parameter === 37446) { // UNMASKED_RENDERER_WEBGL
				return 'Intel Iris OpenGL Engine';
			}
			return getParameter.apply(this, arguments);
		};

		Object.defineProperty(window.screen, 'width', {
			get: () => width + 100
		});
		Object.defineProperty(window.screen, 'height', {
			get: () => height + 100
		});
		Object.defineProperty(window.screen, 'availWidth', {
			get: () => width + 100
		});
		Object.defineProperty(window.screen, 'availHeight', {
			get: () => height + 60
		});

		Object.defineProperty(navigator, 'platform', {
			get: () => platform
		});

		if ('getBattery' in navigator) {
			navigator.getBattery = () => Promise.resolve({
				charging: true,
				chargingTime: 0,
				dischargingTime: Infinity,
				level: 1.0
			});
		}

		Object.defineProperty(navigator, 'connection', {
			get: () => ({
				effectiveType: '4g',
				downlink: 10,
				rtt: 50,
				saveData: false
			})
		});

		Date.prototype.getTimezoneOffset = function() {
			return -300;
		};
	}`
}

func (b *Browser) NewPage(ctx context.Context) (*rod.Page, error) {
	p := b.Rod.MustPage("")

	// Long default timeout so character-by-character typing never trips it
	p = p.Timeout(300 * time.Second)

	w := randRange(b.Cfg.Stealth.ViewportWidthMin, b.Cfg.Stealth.ViewportWidthMax)
	h := randRange(b.Cfg.Stealth.ViewportHeightMin, b.Cfg.Stealth.ViewportHeightMax)
	platform := "Win32"

	// Re-apply stealth on every navigation
	p.EvalOnNewDocument(getStealthScript(w, h, platform))

	return p, nil
}

func (b *Browser) Close() {
	if b.Rod != nil {
		_ = b.Rod.Close()
	}
}

func randRange(min, max int) int {
	if min >= max {
		return min
	}
	return min + rand.Intn(max-min+1)
}

// HasElement checks if an element exists within a short timeout.
func HasElement(p *rod.Page, sel string) bool {
	_, err := p.Timeout(2 * time.Second).Element(sel)
	return err == nil
}

// HasElementWithText checks if an element matching text exists.
func HasElementWithText(p *rod.Page, text string) bool {
	_, err := p.Timeout(2*time.Second).ElementR("*", text)
	return err == nil
}

func ScreenshotOnError(p *rod.Page, prefix string, err error) error {
	if p == nil || err == nil {
		return err
	}
	path := fmt.Sprintf("%s-%d.png", prefix, time.Now().Unix())
	bts, _ := p.Screenshot(true, &proto.PageCaptureScreenshot{})
	_ = os.WriteFile(path, bts, 0644)
	return err
}
