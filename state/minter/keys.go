package minter

const (
	configKeyString  = "minter/config"
	windowKeyString  = "minter/window"
	accountKeyPrefix = "minter/accounts/"
)

func configKey() []byte { return []byte(configKeyString) }

func windowKey() []byte { return []byte(windowKeyString) }

func accountKey(account string) []byte {
	return []byte(accountKeyPrefix + account)
}
