package auth

import "time"

// Discuz DOM selectors for sehuatang-style forums.
// The markup drifts between site versions, so every lookup goes through a
// prioritized list (most specific first). Update these when login breaks.

var (
	// Signals that the current session is authenticated.
	loginMarkers = []string{
		`//a[contains(text(),'退出')]`,
		`//a[contains(@href,'logout')]`,
		`.vwmy`,
	}

	// The 18+ interstitial shown before the real site content loads.
	ageGateLinks = []string{
		`//a[contains(text(),'满18岁')]`,
		`//a[contains(text(),'同意并继续')]`,
		`a.enter-btn`,
	}

	// Cheap document-ready check used after navigation.
	settleLandmarks = []string{
		`#wp`,
		`.wp`,
		`body`,
	}

	// Elements proving the real page rendered after the age gate.
	gateLandmarks = []string{
		`#wp`,
		`#ls_username`,
		`//a[contains(@href,'logout')]`,
	}

	usernameFields = []string{
		`#ls_username`,
		`input[name='username']`,
		`//input[@id='username']`,
	}

	passwordFields = []string{
		`#ls_password`,
		`input[name='password']`,
		`//input[@id='password']`,
	}

	// Dropdown for the optional security question challenge.
	questionSelects = []string{
		`select[name='questionid']`,
		`#questionid`,
	}

	answerFields = []string{
		`input[name='answer']`,
		`#answer`,
	}

	submitButtons = []string{
		`button[name='loginsubmit']`,
		`//button[@name='loginsubmit']`,
		`input[name='loginsubmit']`,
		`//input[@type='submit']`,
	}
)

// Known rejection phrases scraped from the result page. Longer phrases
// first so substrings don't shadow them.
var failurePhrases = []string{
	"密码错误次数过多",
	"登录失败，您还可以尝试",
	"验证码填写错误",
	"抱歉，您输入的密码有误",
	"密码错误",
	"用户不存在",
	"您的请求来路不正确",
}

// timeouts bounds every wait in the workflow. Tests shrink these.
type timeouts struct {
	marker   time.Duration // login state check
	field    time.Duration // form fields and submit controls
	gate     time.Duration // age gate probe
	question time.Duration // security question probe
	settle   time.Duration // post-navigation landmarks
	verify   time.Duration // post-submit marker wait
}

func defaultTimeouts() timeouts {
	return timeouts{
		marker:   3 * time.Second,
		field:    10 * time.Second,
		gate:     2 * time.Second,
		question: 4 * time.Second,
		settle:   8 * time.Second,
		verify:   10 * time.Second,
	}
}
