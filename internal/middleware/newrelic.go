package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// NewRelicErrors reports errors attached with c.Error to the New Relic
// transaction started by nrgin, and tags the transaction with the route
// parameters so payments can be traced by order or payment id.
func NewRelicErrors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}

		for _, p := range c.Params {
			txn.AddAttribute("param."+p.Key, p.Value)
		}
		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
