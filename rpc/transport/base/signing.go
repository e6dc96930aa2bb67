package base

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"sort"

	"github.com/ValentinKolb/rmq/rpc/common"
)

// ACL ext field names
const (
	FieldAccessKey     = "AccessKey"
	FieldSecurityToken = "SecurityToken"
	FieldSignature     = "Signature"
)

// signCommand adds the access key and the signature to the ext fields of cmd.
// The signature covers the values of all ext fields in key order followed by the body.
// Commands are left untouched if no credentials are configured.
func signCommand(cmd *common.Command, creds common.Credentials) error {
	if creds.IsEmpty() {
		return nil
	}

	cmd.SetExtField(FieldAccessKey, creds.AccessKey)
	if creds.SecurityToken != "" {
		cmd.SetExtField(FieldSecurityToken, creds.SecurityToken)
	}
	delete(cmd.Header.ExtFields, FieldSignature)

	keys := make([]string, 0, len(cmd.Header.ExtFields))
	size := len(cmd.Body)
	for k, v := range cmd.Header.ExtFields {
		keys = append(keys, k)
		size += len(v)
	}
	sort.Strings(keys)

	data := make([]byte, 0, size)
	for _, k := range keys {
		data = append(data, cmd.Header.ExtFields[k]...)
	}
	data = append(data, cmd.Body...)

	cmd.SetExtField(FieldSignature, CalculateSignature(data, creds.SecretKey))
	return nil
}

// CalculateSignature returns the base64 encoded HMAC-SHA1 of data
func CalculateSignature(data []byte, secretKey string) string {
	mac := hmac.New(sha1.New, []byte(secretKey))
	mac.Write(data)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
