package harvester

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/firefox"

	"linkedin-harvester/pkg/types"
)

// SeleniumSurface is the fallback engine: Firefox driven through a local
// geckodriver instance. Used when no Chrome binary is available.
type SeleniumSurface struct {
	driver  selenium.WebDriver
	service *selenium.Service
	logger  *logrus.Logger
}

func NewSeleniumSurface(cfg types.HarvestConfig, logger *logrus.Logger) (*SeleniumSurface, error) {
	caps := selenium.Capabilities{
		"browserName": "firefox",
	}

	args := []string{
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-gpu",
	}
	if cfg.Headless {
		args = append(args, "--headless")
	}

	caps.AddFirefox(firefox.Capabilities{
		Args: args,
		Prefs: map[string]interface{}{
			"general.useragent.override": cfg.UserAgent,
			"dom.webdriver.enabled":      false,
			"useAutomationExtension":     false,
		},
	})

	// Each session gets its own geckodriver on its own port so concurrent
	// runs never contend for one driver instance.
	port, err := freePort()
	if err != nil {
		return nil, fmt.Errorf("failed to pick a geckodriver port: %w", err)
	}

	selenium.SetDebug(false)
	service, err := selenium.NewGeckoDriverService("geckodriver", port)
	if err != nil {
		return nil, fmt.Errorf("failed to start GeckoDriver service: %w", err)
	}

	driver, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d", port))
	if err != nil {
		service.Stop()
		return nil, fmt.Errorf("failed to open Firefox session: %w", err)
	}

	if err := driver.SetPageLoadTimeout(cfg.ActionTimeout); err != nil {
		logger.Warnf("Failed to set page load timeout: %v", err)
	}
	if err := driver.SetImplicitWaitTimeout(500 * time.Millisecond); err != nil {
		logger.Warnf("Failed to set implicit wait timeout: %v", err)
	}

	return &SeleniumSurface{
		driver:  driver,
		service: service,
		logger:  logger,
	}, nil
}

func (ss *SeleniumSurface) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ss.driver.Get(url)
}

func (ss *SeleniumSurface) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return ss.driver.PageSource()
}

func (ss *SeleniumSurface) BodyText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := ss.driver.FindElement(selenium.ByTagName, "body")
	if err != nil {
		return "", err
	}
	return body.Text()
}

func (ss *SeleniumSurface) ScrollBy(ctx context.Context, pixels int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := ss.driver.ExecuteScript(fmt.Sprintf("window.scrollBy(0, %d);", pixels), nil)
	return err
}

func (ss *SeleniumSurface) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	element, err := ss.driver.FindElement(selenium.ByCSSSelector, selector)
	if err != nil {
		return err
	}
	return element.Click()
}

func (ss *SeleniumSurface) ClickScript(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	script := fmt.Sprintf(`
		var el = document.querySelector(%q);
		if (!el) { return false; }
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;`, selector)
	res, err := ss.driver.ExecuteScript(script, nil)
	if err != nil {
		return false, err
	}
	clicked, _ := res.(bool)
	return clicked, nil
}

func (ss *SeleniumSurface) ClickExactText(ctx context.Context, label string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	// Prefer a native WebDriver click on the matching element; scripted
	// dispatch is the fallback when the element refuses interaction.
	if element, err := ss.driver.FindElement(selenium.ByXPATH, exactTextXPath(label)); err == nil {
		clickErr := element.Click()
		if clickErr == nil {
			return true, nil
		}
		ss.logger.Debugf("Native click on %q option failed, using scripted scan: %v", label, clickErr)
	}

	script := fmt.Sprintf(`
		var want = %q;
		var els = document.querySelectorAll('span, div, a, button, li');
		for (var i = 0; i < els.length; i++) {
			var text = (els[i].innerText || '').trim().toLowerCase();
			if (text === want) {
				els[i].scrollIntoView({block: 'center'});
				els[i].click();
				return true;
			}
		}
		return false;`, strings.ToLower(strings.TrimSpace(label)))
	res, err := ss.driver.ExecuteScript(script, nil)
	if err != nil {
		return false, err
	}
	clicked, _ := res.(bool)
	return clicked, nil
}

func (ss *SeleniumSurface) ClickButtonsContaining(ctx context.Context, tokens ...string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	lowered := make([]string, len(tokens))
	for i, tok := range tokens {
		lowered[i] = strings.ToLower(tok)
	}
	encoded, err := json.Marshal(lowered)
	if err != nil {
		return 0, err
	}

	script := fmt.Sprintf(`
		var tokens = %s;
		var clicked = 0;
		var els = document.querySelectorAll("button, a[role='button'], div[role='button']");
		for (var i = 0; i < els.length; i++) {
			var text = (els[i].innerText || '').toLowerCase();
			var all = true;
			for (var j = 0; j < tokens.length; j++) {
				if (text.indexOf(tokens[j]) === -1) { all = false; break; }
			}
			if (all) {
				try { els[i].click(); clicked++; } catch (e) {}
			}
		}
		return clicked;`, string(encoded))

	res, err := ss.driver.ExecuteScript(script, nil)
	if err != nil {
		return 0, err
	}
	if count, ok := res.(float64); ok {
		return int(count), nil
	}
	return 0, nil
}

func (ss *SeleniumSurface) ElementText(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	element, err := ss.driver.FindElement(selenium.ByCSSSelector, selector)
	if err != nil {
		return "", err
	}
	return element.Text()
}

func (ss *SeleniumSurface) Exists(ctx context.Context, selector string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	elements, err := ss.driver.FindElements(selenium.ByCSSSelector, selector)
	if err != nil {
		return false, err
	}
	return len(elements) > 0, nil
}

func (ss *SeleniumSurface) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	element, err := ss.driver.FindElement(selenium.ByCSSSelector, selector)
	if err != nil {
		return err
	}
	if err := element.Clear(); err != nil {
		ss.logger.Debugf("Failed to clear %s before fill: %v", selector, err)
	}
	return element.SendKeys(value)
}

func (ss *SeleniumSurface) PressTab(ctx context.Context) error {
	return ss.sendKeyToActive(ctx, selenium.TabKey)
}

func (ss *SeleniumSurface) PressEnter(ctx context.Context) error {
	return ss.sendKeyToActive(ctx, selenium.EnterKey)
}

func (ss *SeleniumSurface) sendKeyToActive(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	active, err := ss.driver.ActiveElement()
	if err != nil {
		return err
	}
	return active.SendKeys(key)
}

func (ss *SeleniumSurface) ActiveElementText(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	active, err := ss.driver.ActiveElement()
	if err != nil {
		return "", err
	}
	return active.Text()
}

func (ss *SeleniumSurface) Settle(ctx context.Context, d time.Duration) {
	settle(ctx, d)
}

func (ss *SeleniumSurface) Close() {
	if ss.driver != nil {
		if err := ss.driver.Quit(); err != nil {
			ss.logger.Warnf("Failed to quit Firefox session: %v", err)
		}
	}
	if ss.service != nil {
		ss.service.Stop()
	}
}

// exactTextXPath matches span/div/a/button/li elements whose trimmed text
// equals label case-insensitively.
func exactTextXPath(label string) string {
	lowered := strings.ToLower(strings.TrimSpace(label))
	return fmt.Sprintf(
		`//*[self::span or self::div or self::a or self::button or self::li]`+
			`[normalize-space(translate(text(), 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz')) = '%s']`,
		lowered)
}

// freePort asks the kernel for an unused TCP port.
func freePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
