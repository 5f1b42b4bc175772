package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// CreateInteractive walks the user through first-run setup and writes the
// answers to path. Input is read line by line from r; prompts go to w.
func CreateInteractive(path string, r io.Reader, w io.Writer) (*Config, error) {
	in := bufio.NewScanner(r)
	ask := func(prompt string) string {
		fmt.Fprintf(w, "%s: ", prompt)
		if !in.Scan() {
			return ""
		}
		return strings.TrimSpace(in.Text())
	}

	fmt.Fprintln(w, "No config file found, creating one.")

	v := newViper()
	v.Set("unread_folder", ask("Device folder to push unread documents to"))
	v.Set("read_folder", ask("Device folder to pull finished documents from"))
	v.Set("library_id", ask("Zotero library ID"))
	v.Set("library_type", ask("Zotero library type (user/group)"))
	v.Set("api_key", ask("Zotero API key"))

	useWebdav := strings.EqualFold(ask("Does Zotero use WebDAV storage for attachments (yes/no)?"), "yes")
	v.Set("use_webdav", useWebdav)
	if useWebdav {
		v.Set("webdav_hostname", ask("WebDAV URL (same as in the Zotero client, including /zotero)"))
		v.Set("webdav_user", ask("WebDAV username"))
		v.Set("webdav_pwd", ask("WebDAV password (an app token is safer, it is stored in clear text)"))
	}

	if err := v.WriteConfigAs(path); err != nil {
		return nil, fmt.Errorf("failed to write config to %s: %w", path, err)
	}
	fmt.Fprintf(w, "Config written to %s. Edit it manually if something went wrong.\n", path)

	return fromViper(v), nil
}
