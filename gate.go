// Package firegate is the Cloud Functions backend guarding the app's
// Firestore collections. Every document operation is authenticated with
// Firebase and checked against the ownership policy before it touches
// the database; the same policy is the source of the deployed
// firestore.rules file.
package firegate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"cloud.google.com/go/compute/metadata"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/google/uuid"

	"github.com/firegate-io/firegate/audit"
	"github.com/firegate-io/firegate/auth"
	"github.com/firegate-io/firegate/contract"
	"github.com/firegate-io/firegate/log"
	"github.com/firegate-io/firegate/policy"
	"github.com/firegate-io/firegate/store"
)

const (
	ErrorMsgLogField    = "errorMsg"
	bodyLogField        = "body"
	userIDLogField      = "userID"
	opLogField          = "op"
	collectionLogField  = "collection"
	docIDLogField       = "docID"
	decisionLogField    = "decision"
	reasonLogField      = "reason"
	gcloudFuncSourceDir = "serverless_function_source_code"
)

var (
	auditDatabaseURL = os.Getenv("AUDIT_DATABASE_URL")
	policyFile       = os.Getenv("POLICY_FILE")

	rulesetOnce sync.Once
	ruleset     *policy.Ruleset
	rulesetErr  error

	auditOnce sync.Once
	auditLog  *audit.Log
)

func init() {
	functions.HTTP("Gate", Gate)
	functions.HTTP("Assist", Assist)
	functions.HTTP("Guide", Guide)
	fixDir()
}

// in GCP Functions, source code is placed in a directory named "serverless_function_source_code"
// need to change the dir to get access to the policy, prompt and guide files
func fixDir() {
	fileInfo, err := os.Stat(gcloudFuncSourceDir)
	if err == nil && fileInfo.IsDir() {
		_ = os.Chdir(gcloudFuncSourceDir)
	}
}

func loadRuleset() (*policy.Ruleset, error) {
	rulesetOnce.Do(func() {
		path := policyFile
		if path == "" {
			path = "policy.yaml"
		}
		ruleset, rulesetErr = policy.Load(path)
		if errors.Is(rulesetErr, os.ErrNotExist) {
			ruleset, rulesetErr = policy.Default(), nil
		}
	})
	return ruleset, rulesetErr
}

func openAudit(ctx context.Context) *audit.Log {
	if auditDatabaseURL == "" {
		return nil
	}
	auditOnce.Do(func() {
		var err error
		auditLog, err = audit.Open(auditDatabaseURL)
		if err != nil {
			log.LoggerFromContext(ctx).Error("error while opening audit log", slog.String(ErrorMsgLogField, err.Error()))
			auditLog = nil
		}
	})
	return auditLog
}

// Gate handles one authenticated document operation.
func Gate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if projectID, err := metadata.ProjectIDWithContext(ctx); err == nil {
		ctx = log.WithTrace(ctx, r, projectID)
	}
	logger := log.LoggerFromContext(ctx)
	logger.Info("gate function called")

	if r.Method != http.MethodPost {
		logger.Error("invalid method: " + r.Method)
		http.Error(w, "Method Not Implemented", http.StatusNotImplemented)
		return
	}

	token, err := auth.Authenticate(r)
	if err != nil {
		logger.Error("error while authenticating", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	logger = logger.With(slog.String(userIDLogField, token.UID))

	data, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("error while reading request body", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	logger.Info("incoming request", slog.String(bodyLogField, string(data)))

	var greq contract.GateRequest
	if err := json.Unmarshal(data, &greq); err != nil {
		logger.Error("error while decoding request", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	logger = logger.With(
		slog.String(opLogField, greq.Op),
		slog.String(collectionLogField, greq.Collection),
		slog.String(docIDLogField, greq.DocID),
	)
	ctx = log.WithLogger(ctx, logger)

	op, err := policy.ParseOperation(greq.Op)
	if err != nil {
		logger.Error("error while parsing operation", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if greq.DocID == "" && op != policy.OpCreate {
		logger.Error("missing doc_id")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	rs, err := loadRuleset()
	if err != nil {
		logger.Error("error while loading policy", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	st, err := store.NewFirestore(ctx)
	if err != nil {
		logger.Error("error while connecting to firestore", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer st.Close()

	resp, dec, err := executeGate(ctx, st, rs, auth.Identity(token).UID, op, greq)
	if err != nil {
		logger.Error("error while executing operation", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	logger.Info("gate decision",
		slog.Bool(decisionLogField, dec.Allowed),
		slog.String(reasonLogField, dec.Reason),
	)
	recordDecision(ctx, token.UID, greq, dec)

	if !dec.Allowed {
		http.Error(w, "Permission Denied", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("error while encoding response", slog.String(ErrorMsgLogField, err.Error()))
	}
}

// executeGate evaluates the policy for one operation and, when allowed,
// runs it against the store. Denials are not errors.
func executeGate(ctx context.Context, st store.Store, rs *policy.Ruleset, uid string, op policy.Operation, greq contract.GateRequest) (*contract.GateResponse, policy.Decision, error) {
	docID := greq.DocID
	if docID == "" {
		// create without a client-chosen ID
		docID = uuid.NewString()
	}

	req := policy.Request{
		Auth:       &policy.Auth{UID: uid},
		Op:         op,
		Collection: greq.Collection,
		DocID:      docID,
		Incoming:   greq.Data,
	}
	if op != policy.OpCreate {
		resource, err := st.Get(ctx, greq.Collection, docID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, policy.Decision{}, err
		}
		// a missing document stays nil and the policy denies it,
		// matching the way the database reports such reads
		req.Resource = resource
	}

	dec, err := rs.Evaluate(ctx, st, req)
	if err != nil {
		return nil, policy.Decision{}, err
	}
	if !dec.Allowed {
		return nil, dec, nil
	}

	resp := &contract.GateResponse{ID: docID}
	switch op {
	case policy.OpRead:
		resp.Data = req.Resource
	case policy.OpCreate:
		err = st.Create(ctx, greq.Collection, docID, greq.Data)
	case policy.OpUpdate:
		err = st.Set(ctx, greq.Collection, docID, greq.Data)
	case policy.OpDelete:
		err = st.Delete(ctx, greq.Collection, docID)
	}
	if err != nil {
		return nil, dec, err
	}
	return resp, dec, nil
}

func recordDecision(ctx context.Context, uid string, greq contract.GateRequest, dec policy.Decision) {
	aud := openAudit(ctx)
	if aud == nil {
		return
	}
	err := aud.Record(ctx, audit.Entry{
		UID:        uid,
		Op:         greq.Op,
		Collection: greq.Collection,
		DocID:      greq.DocID,
		Allowed:    dec.Allowed,
		Reason:     dec.Reason,
	})
	if err != nil {
		log.LoggerFromContext(ctx).Error("error while recording audit entry", slog.String(ErrorMsgLogField, err.Error()))
	}
}
