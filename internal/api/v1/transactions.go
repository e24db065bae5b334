package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/gosuda/escrow-admin/internal/admin"
	"github.com/gosuda/escrow-admin/internal/domain"
)

type TransactionKindPath struct {
	Kind string `path:"kind" doc:"Transaction table: transactions or escrow_transactions"`
}

type TransactionPath struct {
	TransactionKindPath
	ID uuid.UUID `path:"id" doc:"Transaction ID"`
}

type CreateTransactionInput struct {
	TransactionKindPath
	Body struct {
		Amount      int64      `json:"amount" minimum:"1" doc:"Amount in minor currency units"`
		Description string     `json:"description,omitempty" maxLength:"2000" doc:"What is being sold"`
		BuyerID     *uuid.UUID `json:"buyer_id,omitempty" doc:"Buyer profile ID"`
		SellerID    *uuid.UUID `json:"seller_id,omitempty" doc:"Seller profile ID"`
	}
}

type TransitionInput struct {
	TransactionPath
	Body struct {
		Action string `json:"action" doc:"Transition to perform: accept, deliver, confirm_receipt, cancel, raise_dispute, resolve_complete or resolve_cancel"`
	}
}

type TransactionActionInput struct {
	TransactionPath
}

func transactionRequest(ctx context.Context, kind string, id uuid.UUID) (admin.Request, error) {
	k, err := domain.ParseEntityKind(kind)
	if err != nil {
		return admin.Request{}, actionError(err)
	}
	if !k.IsTransaction() {
		return admin.Request{}, huma.Error400BadRequest(string(domain.KindInvalidInput) + ": not a transaction kind")
	}
	return actorRequest(ctx, k, id)
}

func RegisterTransactionRoutes(api huma.API, svc AdminService) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-transaction",
		Method:        http.MethodPost,
		Path:          "/entities/{kind}",
		Summary:       "Open a pending transaction",
		Tags:          []string{"Transactions"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateTransactionInput) (*ActionOutput, error) {
		req, err := transactionRequest(ctx, input.Kind, uuid.Nil)
		if err != nil {
			return nil, err
		}

		res, err := svc.CreateTransaction(ctx, req, admin.NewTransactionInput{
			Amount:      input.Body.Amount,
			Description: input.Body.Description,
			BuyerID:     input.Body.BuyerID,
			SellerID:    input.Body.SellerID,
		})
		if err != nil {
			return nil, actionError(err)
		}
		return actionOutput(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-transaction",
		Method:      http.MethodPost,
		Path:        "/entities/{kind}/{id}/transition",
		Summary:     "Drive a transaction with staff authority",
		Tags:        []string{"Transactions"},
	}, func(ctx context.Context, input *TransitionInput) (*ActionOutput, error) {
		req, err := transactionRequest(ctx, input.Kind, input.ID)
		if err != nil {
			return nil, err
		}
		action, err := domain.ParseTransactionAction(input.Body.Action)
		if err != nil {
			return nil, actionError(err)
		}

		res, err := svc.TransitionTransaction(ctx, req, action)
		if err != nil {
			return nil, actionError(err)
		}
		return actionOutput(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-transaction",
		Method:      http.MethodPost,
		Path:        "/entities/{kind}/{id}/cancel",
		Summary:     "Cancel a transaction with staff authority",
		Tags:        []string{"Transactions"},
	}, func(ctx context.Context, input *TransactionActionInput) (*ActionOutput, error) {
		req, err := transactionRequest(ctx, input.Kind, input.ID)
		if err != nil {
			return nil, err
		}

		res, err := svc.CancelTransaction(ctx, req)
		if err != nil {
			return nil, actionError(err)
		}
		return actionOutput(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "party-action",
		Method:      http.MethodPost,
		Path:        "/entities/{kind}/{id}/party-action",
		Summary:     "Drive a transaction as its buyer or seller",
		Tags:        []string{"Transactions"},
	}, func(ctx context.Context, input *TransitionInput) (*ActionOutput, error) {
		req, err := transactionRequest(ctx, input.Kind, input.ID)
		if err != nil {
			return nil, err
		}
		action, err := domain.ParseTransactionAction(input.Body.Action)
		if err != nil {
			return nil, actionError(err)
		}

		res, err := svc.PartyTransition(ctx, req, action)
		if err != nil {
			return nil, actionError(err)
		}
		return actionOutput(res), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "join-transaction",
		Method:      http.MethodPost,
		Path:        "/entities/{kind}/{id}/join",
		Summary:     "Take the open side of a pending transaction",
		Tags:        []string{"Transactions"},
	}, func(ctx context.Context, input *TransactionActionInput) (*ActionOutput, error) {
		req, err := transactionRequest(ctx, input.Kind, input.ID)
		if err != nil {
			return nil, err
		}

		res, err := svc.JoinTransaction(ctx, req)
		if err != nil {
			return nil, actionError(err)
		}
		return actionOutput(res), nil
	})
}
